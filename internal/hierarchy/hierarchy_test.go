package hierarchy_test

import (
	"fmt"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opencode-ai/chatcore/internal/hierarchy"
)

type turn string

func (t turn) ID() string { return string(t) }

var _ = Describe("Hierarchy", func() {
	var (
		h      *hierarchy.Hierarchy[turn]
		events []hierarchy.ChangeEvent[turn]
	)

	BeforeEach(func() {
		h = hierarchy.New[turn]()
		events = nil
		h.OnDidChange(func(e hierarchy.ChangeEvent[turn]) {
			events = append(events, e)
		})
	})

	AfterEach(func() {
		h.Dispose()
	})

	Describe("Append", func() {
		It("places the first request in the root branch", func() {
			h.Append("a")

			Expect(h.Root().Len()).To(Equal(1))
			Expect(h.Root().Get()).To(Equal(turn("a")))
			Expect(events).To(HaveLen(1))
		})

		It("extends the active path linearly", func() {
			h.Append("a")
			h.Append("b")
			h.Append("c")

			Expect(h.ActiveRequests()).To(Equal([]turn{"a", "b", "c"}))
			Expect(h.ActiveBranches()).To(HaveLen(3))
			Expect(h.Root().Len()).To(Equal(1))
		})

		It("follows the active alternative after a fork", func() {
			h.Append("a")
			h.Append("b")
			second, err := h.FindBranch("b")
			Expect(err).NotTo(HaveOccurred())
			second.Add("b2")
			h.Append("c")

			Expect(h.ActiveRequests()).To(Equal([]turn{"a", "b2", "c"}))

			Expect(second.Enable("b")).To(Succeed())
			Expect(h.ActiveRequests()).To(Equal([]turn{"a", "b"}))
		})
	})

	Describe("Branch", func() {
		It("fails loudly when continuing or reading an empty branch", func() {
			_, err := h.Root().Continue("x")
			Expect(err).To(MatchError(hierarchy.ErrEmptyBranch))
			Expect(err.Error()).To(ContainSubstring("no current branch to continue from"))

			_, err = h.Root().Get()
			Expect(err).To(MatchError(hierarchy.ErrEmptyBranch))
			Expect(h.Root().ActiveIndex()).To(Equal(-1))
			Expect(h.Root().Next()).To(BeNil())
		})

		It("wires a continued branch as the next of the active item", func() {
			h.Append("a")
			child, err := h.Root().Continue("b")
			Expect(err).NotTo(HaveOccurred())

			Expect(h.Root().Next()).To(BeIdenticalTo(child))
			Expect(child.Get()).To(Equal(turn("b")))
			Expect(child.ActiveIndex()).To(Equal(0))
			Expect(h.Root().Items()[0].Next()).To(BeIdenticalTo(child))
		})

		It("moves the active index with EnablePrevious and EnableNext", func() {
			root := h.Root()
			root.Add("a")
			root.Add("b")
			root.Add("c")
			events = nil

			Expect(root.EnableNext()).To(BeFalse())
			Expect(root.EnablePrevious()).To(BeTrue())
			Expect(root.Get()).To(Equal(turn("b")))
			Expect(root.EnablePrevious()).To(BeTrue())
			Expect(root.EnablePrevious()).To(BeFalse())
			Expect(root.Get()).To(Equal(turn("a")))

			Expect(events).To(HaveLen(2))
			Expect(events[1].Branch).To(BeIdenticalTo(root))
			Expect(events[1].Item.Element()).To(Equal(turn("a")))
		})

		It("rejects enabling an unknown item", func() {
			h.Append("a")
			Expect(h.Root().Enable("zzz")).To(MatchError(hierarchy.ErrItemNotFound))
		})

		It("adjusts the active index on remove", func() {
			root := h.Root()
			root.Add("a")
			root.Add("b")
			root.Add("c")
			Expect(root.Enable("b")).To(Succeed())

			Expect(root.Remove("a")).To(BeTrue())
			Expect(root.Get()).To(Equal(turn("b")))
			Expect(root.ActiveIndex()).To(Equal(0))

			Expect(root.RemoveByID("c")).To(BeTrue())
			Expect(root.Get()).To(Equal(turn("b")))

			Expect(root.Remove("b")).To(BeTrue())
			Expect(root.ActiveIndex()).To(Equal(-1))
			Expect(root.Remove("b")).To(BeFalse())
		})

		It("keeps the first item active when the active first item is removed", func() {
			root := h.Root()
			root.Add("a")
			root.Add("b")
			Expect(root.Enable("a")).To(Succeed())
			events = nil

			Expect(root.Remove("a")).To(BeTrue())
			Expect(root.Get()).To(Equal(turn("b")))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Item.Element()).To(Equal(turn("b")))
		})
	})

	Describe("search", func() {
		It("finds requests on inactive forks", func() {
			h.Append("a")
			h.Append("b")
			h.Append("c")

			fork, err := h.FindBranch("b")
			Expect(err).NotTo(HaveOccurred())
			fork.Add("b2")
			_, err = fork.Continue("c2")
			Expect(err).NotTo(HaveOccurred())

			Expect(fork.Enable("b")).To(Succeed())

			for _, id := range []string{"a", "b", "c", "b2", "c2"} {
				got, ok := h.FindRequest(id)
				Expect(ok).To(BeTrue(), id)
				Expect(got.ID()).To(Equal(id))
			}

			_, ok := h.FindRequest("missing")
			Expect(ok).To(BeFalse())

			_, err = h.FindBranch("missing")
			Expect(err).To(MatchError(hierarchy.ErrBranchNotFound))
		})

		It("stops the active walk at the first empty branch", func() {
			h.Append("a")
			h.Append("b")
			tail, err := h.FindBranch("b")
			Expect(err).NotTo(HaveOccurred())
			Expect(tail.Remove("b")).To(BeTrue())

			Expect(h.ActiveRequests()).To(Equal([]turn{"a"}))
			Expect(h.ActiveBranches()).To(HaveLen(1))
		})
	})

	Describe("random operation sequences", func() {
		It("keeps the active index within bounds", func() {
			rng := rand.New(rand.NewSource(42))
			root := h.Root()
			var ids []turn

			for i := 0; i < 2000; i++ {
				switch rng.Intn(5) {
				case 0, 1:
					id := turn(fmt.Sprintf("t%d", i))
					ids = append(ids, id)
					root.Add(id)
				case 2:
					if len(ids) > 0 {
						root.Remove(ids[rng.Intn(len(ids))])
					}
				case 3:
					root.EnablePrevious()
				case 4:
					root.EnableNext()
				}

				n := root.Len()
				idx := root.ActiveIndex()
				Expect(idx).To(BeNumerically(">=", -1))
				Expect(idx).To(BeNumerically("<=", n-1))
				if n > 0 {
					Expect(idx).To(BeNumerically(">=", 0))
					_, err := root.Get()
					Expect(err).NotTo(HaveOccurred())
				}
			}
		})
	})
})
