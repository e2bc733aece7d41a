package commands

import (
	"github.com/spf13/afero"

	"github.com/opencode-ai/chatcore/internal/agent"
	"github.com/opencode-ai/chatcore/internal/changeset"
	"github.com/opencode-ai/chatcore/internal/config"
	"github.com/opencode-ai/chatcore/internal/parser"
	"github.com/opencode-ai/chatcore/internal/session"
	"github.com/opencode-ai/chatcore/internal/tool"
	"github.com/opencode-ai/chatcore/pkg/types"
)

// workspace is what the commands share: the configured agents, tools and
// variable resolvers for the project directory.
type workspace struct {
	dir       string
	fs        afero.Fs
	agents    *agent.Registry
	tools     *tool.Registry
	variables parser.VariableResolver
}

func newWorkspace(cfg *types.Config, dir string) (*workspace, error) {
	agents := agent.NewRegistry()
	if err := agents.LoadFromConfig(cfg.Agent); err != nil {
		return nil, err
	}

	fs := afero.NewBasePathFs(afero.NewOsFs(), dir)
	return &workspace{
		dir:    dir,
		fs:     fs,
		agents: agents,
		tools:  tool.DefaultRegistry(fs),
		variables: parser.Chain{
			parser.StaticResolver(cfg.Variables),
			parser.FileResolver{Fs: fs},
		},
	}, nil
}

func (w *workspace) parser() *parser.Parser {
	return parser.New(w.agents, w.tools, w.variables)
}

// newSession builds a session for loc. The returned stop function releases
// the file watcher, if one was started.
func (w *workspace) newSession(cfg *types.Config, loc agent.Location) (*session.Session, func(), error) {
	policy, err := config.ToolPolicy(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := session.Options{
		Location:  loc,
		Agents:    w.agents,
		Tools:     w.tools,
		Variables: w.variables,
		Policy:    policy,
		Fs:        w.fs,
		Debounce:  config.DebounceWindow(cfg),
	}

	stop := func() {}
	if cfg.ChangeSet != nil && cfg.ChangeSet.Watch {
		watcher, err := changeset.NewWatcher(cfg.ChangeSet.Ignore...)
		if err != nil {
			return nil, nil, err
		}
		// Elements carry paths inside the BasePathFs.
		watcher.SetRoot(w.dir)
		watcher.Start()
		opts.Watcher = watcher
		stop = func() { watcher.Stop() }
	}

	s := session.New(opts)
	return s, func() {
		s.Dispose()
		stop()
	}, nil
}
