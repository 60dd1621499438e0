package gamification_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/okian/ecotrack/internal/domain/gamification"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTracker_InitialState(t *testing.T) {
	Convey("Given a new tracker", t, func() {
		tr := gamification.NewTracker()

		Convey("Then the score should be zero", func() {
			So(tr.Score(), ShouldEqual, 0.0)
		})

		Convey("Then the stored level should be Beginner", func() {
			So(tr.LastLevel(), ShouldEqual, gamification.LevelBeginner)
		})

		Convey("Then the status should report Expert once the level is recomputed", func() {
			st := tr.Status()
			So(st.Score, ShouldEqual, 0.0)
			So(st.Level, ShouldEqual, gamification.LevelExpert)
		})
	})
}

func TestTracker_Boundaries(t *testing.T) {
	Convey("Given a tracker starting at zero", t, func() {
		tr := gamification.NewTracker()

		Convey("When adding 199 points", func() {
			tr.AddPoints(199, "")

			Convey("Then the level should be Expert", func() {
				So(tr.Score(), ShouldEqual, 199.0)
				So(tr.Level(), ShouldEqual, gamification.LevelExpert)
			})

			Convey("And when adding 1 more point the level flips to Intermediate", func() {
				tr.AddPoints(1, "")
				So(tr.Score(), ShouldEqual, 200.0)
				So(tr.Level(), ShouldEqual, gamification.LevelIntermediate)

				Convey("And adding 300 more flips to Beginner at exactly 500", func() {
					tr.AddPoints(300, "")
					So(tr.Score(), ShouldEqual, 500.0)
					So(tr.Level(), ShouldEqual, gamification.LevelBeginner)

					Convey("And deducting 1000 clamps the score to zero", func() {
						st := tr.DeductPoints(1000, "")
						So(st.Score, ShouldEqual, 0.0)
						So(st.Level, ShouldEqual, gamification.LevelExpert)
						So(tr.Score(), ShouldEqual, 0.0)
					})
				})
			})
		})
	})
}

func TestTracker_AddPoints(t *testing.T) {
	Convey("Given a tracker with some score", t, func() {
		tr := gamification.NewTracker()
		tr.AddPoints(120.5, "commute")

		Convey("When adding non-negative points", func() {
			for _, p := range []float64{0, 0.25, 10, 1234.5} {
				prev := tr.Score()
				st := tr.AddPoints(p, "")
				So(st.Score, ShouldEqual, prev+p)
				So(tr.Score(), ShouldEqual, prev+p)
			}
		})

		Convey("When adding negative points", func() {
			st := tr.AddPoints(-500, "")

			Convey("Then the score goes below zero without clamping", func() {
				So(st.Score, ShouldEqual, -379.5)
				So(st.Level, ShouldEqual, gamification.LevelExpert)
			})
		})

		Convey("When the description is set", func() {
			st := tr.AddPoints(10, "streamed a movie")

			Convey("Then it should not affect the computation", func() {
				So(st.Score, ShouldEqual, 130.5)
			})
		})
	})
}

func TestTracker_DeductPoints(t *testing.T) {
	Convey("Given a tracker at 300", t, func() {
		tr := gamification.NewTracker()
		tr.AddPoints(300, "")

		cases := []struct {
			points float64
			want   float64
		}{
			{points: 0, want: 300},
			{points: 50, want: 250},
			{points: 300, want: 0},
			{points: 301, want: 0},
			{points: -100, want: 400},
		}

		for _, tc := range cases {
			Convey(fmt.Sprintf("When deducting %v points the score follows max(0, prev-p)", tc.points), func() {
				st := tr.DeductPoints(tc.points, "")
				So(st.Score, ShouldEqual, tc.want)
				So(st.Level, ShouldEqual, gamification.Classify(tc.want))
			})
		}
	})
}

func TestTracker_DeductPointsClamped(t *testing.T) {
	Convey("Given a tracker at 100", t, func() {
		tr := gamification.NewTracker()
		tr.AddPoints(100, "")

		Convey("When a deduction lands exactly on zero", func() {
			st, clamped := tr.DeductPointsClamped(100, "")
			So(st.Score, ShouldEqual, 0.0)
			So(clamped, ShouldBeFalse)
		})

		Convey("When a deduction overshoots zero", func() {
			st, clamped := tr.DeductPointsClamped(101, "")
			So(st.Score, ShouldEqual, 0.0)
			So(clamped, ShouldBeTrue)
		})

		Convey("When concurrent deductions race past zero", func() {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				clamps  int
				workers = 200
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, clamped := tr.DeductPointsClamped(1, ""); clamped {
						mu.Lock()
						clamps++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly the deductions past the floor report a clamp", func() {
				So(tr.Score(), ShouldEqual, 0.0)
				So(clamps, ShouldEqual, workers-100)
			})
		})
	})
}

func TestTracker_LevelIdempotent(t *testing.T) {
	Convey("Given a tracker at 350", t, func() {
		tr := gamification.NewTracker()
		tr.AddPoints(350, "")

		Convey("Then querying the level twice gives the same answer", func() {
			first := tr.Level()
			second := tr.Level()
			So(first, ShouldEqual, second)
			So(first, ShouldEqual, gamification.LevelIntermediate)
		})
	})
}

func TestTracker_Concurrent(t *testing.T) {
	Convey("Given a tracker mutated from many goroutines", t, func() {
		tr := gamification.NewTracker()
		tr.AddPoints(10_000, "")

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					tr.AddPoints(2, "")
				}
			}()
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					tr.DeductPoints(1, "")
					_ = tr.Level()
				}
			}()
		}
		wg.Wait()

		Convey("Then no update should be lost", func() {
			So(tr.Score(), ShouldEqual, 15_000.0)
			So(tr.Level(), ShouldEqual, gamification.LevelBeginner)
		})
	})
}

func TestClassify(t *testing.T) {
	cases := []struct {
		score float64
		want  gamification.Level
	}{
		{0, gamification.LevelExpert},
		{199.999, gamification.LevelExpert},
		{200, gamification.LevelIntermediate},
		{499.5, gamification.LevelIntermediate},
		{500, gamification.LevelBeginner},
		{1e9, gamification.LevelBeginner},
		{-5, gamification.LevelExpert},
	}
	for _, tc := range cases {
		if got := gamification.Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
