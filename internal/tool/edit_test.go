package tool

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/chatcore/internal/changeset"
)

func editContext(fs afero.Fs) (context.Context, *changeset.ChangeSet) {
	cs := changeset.New("turn")
	ctx := WithContext(context.Background(), &Context{RequestID: "req", ChangeSet: cs, Fs: fs})
	return ctx, cs
}

func TestEditTool_ProposesWithoutWriting(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/main.go", []byte("package main\n\nfunc main() {}\n"), 0o644))
	ctx, cs := editContext(fs)
	edit := NewEditTool(afero.NewMemMapFs())

	out, err := edit.Invoke(ctx, `{"filePath":"/app/main.go","oldString":"func main() {}","newString":"func main() {\n\tprintln(1)\n}"}`)
	require.NoError(t, err)

	res := out.(*Result)
	assert.Equal(t, 1, res.Metadata["replacements"])
	assert.Equal(t, 3, res.Metadata["additions"])
	assert.Equal(t, 1, res.Metadata["deletions"])

	data, _ := afero.ReadFile(fs, "/app/main.go")
	assert.Equal(t, "package main\n\nfunc main() {}\n", string(data), "disk is untouched until apply")

	el, ok := cs.GetElementByURI("file:///app/main.go")
	require.True(t, ok)
	fe := el.(*changeset.FileElement)
	assert.Equal(t, changeset.TypeModify, fe.Type())
	assert.Contains(t, fe.Target(), "println(1)")

	// a second edit stacks on the pending proposal
	_, err = edit.Invoke(ctx, `{"filePath":"/app/main.go","oldString":"println(1)","newString":"println(2)"}`)
	require.NoError(t, err)
	again, _ := cs.GetElementByURI("file:///app/main.go")
	assert.Same(t, fe, again)
	assert.Contains(t, fe.Target(), "println(2)")

	require.NoError(t, fe.Apply(context.Background()))
	data, _ = afero.ReadFile(fs, "/app/main.go")
	assert.Contains(t, string(data), "println(2)")
}

func TestEditTool_NewFileAndDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/old.txt", []byte("x"), 0o644))
	ctx, cs := editContext(fs)
	edit := NewEditTool(fs)

	_, err := edit.Invoke(ctx, `{"filePath":"/new.txt","content":"hello"}`)
	require.NoError(t, err)
	_, err = edit.Invoke(ctx, `{"filePath":"/old.txt","delete":true}`)
	require.NoError(t, err)

	added, ok := cs.GetElementByURI("file:///new.txt")
	require.True(t, ok)
	assert.Equal(t, changeset.TypeAdd, added.Type())

	deleted, ok := cs.GetElementByURI("file:///old.txt")
	require.True(t, ok)
	assert.Equal(t, changeset.TypeDelete, deleted.Type())
}

func TestEditTool_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("alpha\nbeta\nbeta\n"), 0o644))
	ctx, _ := editContext(fs)
	edit := NewEditTool(fs)

	_, err := edit.Invoke(context.Background(), `{"filePath":"/a.txt","content":"x"}`)
	assert.ErrorIs(t, err, ErrNoChangeSet)

	_, err = edit.Invoke(ctx, `{"filePath":"/a.txt","oldString":"beta","newString":"gamma"}`)
	assert.ErrorContains(t, err, "appears 2 times")

	_, err = edit.Invoke(ctx, `{"filePath":"/a.txt","oldString":"alpah","newString":"x"}`)
	assert.ErrorContains(t, err, `closest line: "alpha"`)

	_, err = edit.Invoke(ctx, `{"filePath":"/a.txt","oldString":"same","newString":"same"}`)
	assert.Error(t, err)

	_, err = edit.Invoke(ctx, `{"oldString":"a"}`)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReadTool(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/notes.txt", []byte("one\ntwo\nthree\n"), 0o644))
	read := NewReadTool(fs)

	out, err := read.Invoke(context.Background(), `{"filePath":"/notes.txt"}`)
	require.NoError(t, err)
	res := out.(*Result)
	assert.Contains(t, res.Output, "00001| one")
	assert.Contains(t, res.Output, "00003| three")
	assert.Contains(t, res.Output, "(End of file - total 3 lines)")

	out, err = read.Invoke(context.Background(), `{"filePath":"/notes.txt","offset":2,"limit":1}`)
	require.NoError(t, err)
	res = out.(*Result)
	assert.Contains(t, res.Output, "00002| two")
	assert.NotContains(t, res.Output, "three")
	assert.Contains(t, res.Output, "beyond line 2")

	_, err = read.Invoke(context.Background(), `{"filePath":"/missing"}`)
	assert.ErrorContains(t, err, "file not found")
}

func TestEditTool_CreatesChangeSetLazily(t *testing.T) {
	fs := afero.NewMemMapFs()
	var created *changeset.ChangeSet
	calls := 0
	tc := &Context{
		Fs: fs,
		EnsureChangeSet: func() *changeset.ChangeSet {
			calls++
			created = changeset.New("lazy")
			return created
		},
	}
	ctx := WithContext(context.Background(), tc)
	edit := NewEditTool(fs)

	_, err := edit.Invoke(ctx, `{"filePath":"/new.txt","content":"hi"}`)
	require.NoError(t, err)
	_, err = edit.Invoke(ctx, `{"filePath":"/other.txt","content":"there"}`)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	require.NotNil(t, created)
	assert.Equal(t, 2, created.Len())
}

func TestEditTool_StacksOnVisibleProposal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("one two\n"), 0o644))

	earlier, err := changeset.NewFileElement(fs, "/a.txt", "one three\n")
	require.NoError(t, err)

	cs := changeset.New("turn")
	ctx := WithContext(context.Background(), &Context{
		ChangeSet: cs,
		Fs:        fs,
		Lookup: func(uri string) (changeset.Element, bool) {
			if uri == earlier.URI() {
				return earlier, true
			}
			return nil, false
		},
	})

	_, err = NewEditTool(fs).Invoke(ctx, `{"filePath":"/a.txt","oldString":"three","newString":"four"}`)
	require.NoError(t, err)

	el, ok := cs.GetElementByURI("file:///a.txt")
	require.True(t, ok)
	fe := el.(*changeset.FileElement)
	assert.NotSame(t, earlier, fe)
	assert.Equal(t, "one four\n", fe.Target())
	assert.Equal(t, "one two\n", fe.Original())
	assert.Equal(t, "one three\n", earlier.Target(), "the earlier proposal is left alone")
}
