package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/ecotrack/internal/adapters/http/api"
	"github.com/okian/ecotrack/internal/domain/gamification"
	"github.com/okian/ecotrack/internal/domain/model"
	"github.com/okian/ecotrack/internal/domain/types"
	"github.com/okian/ecotrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeDeps backs the handlers with a real tracker and canned footprint data.
type fakeDeps struct {
	tracker    *gamification.Tracker
	history    []types.HistoryEntry
	applyErr   error
	readErr    error
	historyArg int
	applied    int
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{tracker: gamification.NewTracker()}
}

func (f *fakeDeps) Status(context.Context) gamification.Status { return f.tracker.Status() }

func (f *fakeDeps) ApplyAdjustment(_ context.Context, typ model.AdjustmentType, points float64, desc string) (gamification.Status, error) {
	if f.applyErr != nil {
		return gamification.Status{}, f.applyErr
	}
	f.applied++
	if typ == model.AdjustmentDeduct {
		return f.tracker.DeductPoints(points, desc), nil
	}
	return f.tracker.AddPoints(points, desc), nil
}

func (f *fakeDeps) History(_ context.Context, n int) ([]types.HistoryEntry, error) {
	f.historyArg = n
	if n > len(f.history) {
		n = len(f.history)
	}
	return f.history[:n], nil
}

func (f *fakeDeps) CategoryPie(context.Context) ([]types.CategorySlice, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return []types.CategorySlice{
		{Name: "Email", Value: 42},
		{Name: "Online Storage", Value: 12.5},
		{Name: "Video Streaming", Value: 3.2},
	}, nil
}

func (f *fakeDeps) WeeklyTotals(context.Context) ([]types.DayTotal, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return []types.DayTotal{{Day: "Mon", Value: 57}, {Day: "Tue", Value: 60}}, nil
}

func (f *fakeDeps) DailyBreakdown(context.Context) (types.DailyBreakdown, error) {
	if f.readErr != nil {
		return types.DailyBreakdown{}, f.readErr
	}
	return types.DailyBreakdown{EmailsSent: 42, BrowsingHours: 3.2, CloudStorage: 12.5}, nil
}

func (f *fakeDeps) TotalCO2(context.Context) (types.TotalCO2, error) {
	if f.readErr != nil {
		return types.TotalCO2{}, f.readErr
	}
	return types.TotalCO2{Total: 58}, nil
}

type mockStatsProvider struct{}

func (mockStatsProvider) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "score": 0.0}
}

func newHandler(deps *fakeDeps, opts ...api.Option) http.Handler {
	srv := api.NewServer(deps, mockStatsProvider{}, opts...)
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)
	return srv.Handler(mux)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorOf(w *httptest.ResponseRecorder) string {
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		return ""
	}
	return body["error"]
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		h := newHandler(newFakeDeps())

		Convey("Then every route should answer GET with 200", func() {
			for _, path := range []string{
				"/healthz",
				"/stats",
				"/api/gamification",
				"/api/gamification/history",
				"/api/category/pie",
				"/api/weekly/total",
				"/api/daily_breakdown",
				"/api/total_co2",
			} {
				So(do(h, http.MethodGet, path, "").Code, ShouldEqual, http.StatusOK)
			}
		})

		Convey("Then a wrong method on a known route should be 404", func() {
			So(do(h, http.MethodGet, "/api/gamification/update", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodPost, "/api/total_co2", "{}").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then unknown paths should be 404", func() {
			So(do(h, http.MethodGet, "/api/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then stats should merge service and API counters", func() {
			doKeyed(h, "stats-key", `{"type":"add","points":1}`)
			w := do(h, http.MethodGet, "/stats", "")

			var stats map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
			So(stats["idempotencyEnabled"], ShouldEqual, true)
			So(stats["idempotencyKeys"], ShouldEqual, 1.0)
			So(stats["rateLimitedClients"], ShouldEqual, 1.0)
		})

		Convey("Then healthz should expose Prometheus metrics", func() {
			do(h, http.MethodGet, "/api/gamification", "")
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Body.String(), ShouldContainSubstring, "ecotrack_api_http_requests_total")
		})
	})
}

func TestGamificationHandler(t *testing.T) {
	Convey("Given a server whose tracker is at 100", t, func() {
		deps := newFakeDeps()
		deps.tracker.AddPoints(100, "")
		h := newHandler(deps)

		Convey("When reading the status", func() {
			w := do(h, http.MethodGet, "/api/gamification", "")

			Convey("Then it should return score and recomputed level", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(w.Body.String(), ShouldEqual, `{"score":100,"level":"Expert"}`+"\n")
			})
		})

		Convey("When adding 50 points", func() {
			w := do(h, http.MethodPost, "/api/gamification/update", `{"type":"add","points":50}`)

			Convey("Then it should report the new score and level", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, `{"success":true,"new_score":150,"new_level":"Expert"}`+"\n")
			})
		})

		Convey("When deducting past zero", func() {
			w := do(h, http.MethodPost, "/api/gamification/update", `{"type":"deduct","points":1000,"description":"unplugged"}`)

			Convey("Then the score should clamp at zero", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, `{"success":true,"new_score":0,"new_level":"Expert"}`+"\n")
			})
		})

		Convey("When adding enough to cross into Beginner", func() {
			w := do(h, http.MethodPost, "/api/gamification/update", `{"type":"add","points":400}`)

			Convey("Then the level should be Beginner", func() {
				var res types.UpdateResult
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.NewScore, ShouldEqual, 500.0)
				So(res.NewLevel, ShouldEqual, "Beginner")
			})
		})

		Convey("When the action type is unknown", func() {
			w := do(h, http.MethodPost, "/api/gamification/update", `{"type":"bogus","points":50}`)

			Convey("Then it should be rejected without mutation", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorOf(w), ShouldEqual, "Invalid action type")
				So(deps.applied, ShouldEqual, 0)
				So(deps.tracker.Score(), ShouldEqual, 100.0)
			})
		})

		Convey("When the action type is missing", func() {
			w := do(h, http.MethodPost, "/api/gamification/update", `{"points":50}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorOf(w), ShouldEqual, "Invalid action type")
		})

		Convey("When the action type is not a string", func() {
			for _, body := range []string{`{"type":123}`, `{"type":["add"],"points":5}`, `{"type":"bogus","points":"x"}`} {
				w := do(h, http.MethodPost, "/api/gamification/update", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorOf(w), ShouldEqual, "Invalid action type")
			}
			So(deps.applied, ShouldEqual, 0)
			So(deps.tracker.Score(), ShouldEqual, 100.0)
		})

		Convey("When only an unknown type is sent", func() {
			w := do(h, http.MethodPost, "/api/gamification/update", `{"type":"bogus"}`)
			So(errorOf(w), ShouldEqual, "Invalid action type")
		})

		Convey("When points are missing", func() {
			w := do(h, http.MethodPost, "/api/gamification/update", `{"type":"add"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorOf(w), ShouldEqual, "Invalid points")
			So(deps.tracker.Score(), ShouldEqual, 100.0)
		})

		Convey("When the body is not JSON", func() {
			w := do(h, http.MethodPost, "/api/gamification/update", `type=add`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorOf(w), ShouldEqual, "Invalid request body")
		})

		Convey("When points has the wrong type", func() {
			w := do(h, http.MethodPost, "/api/gamification/update", `{"type":"add","points":"ten"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorOf(w), ShouldEqual, "Invalid points")
			So(deps.applied, ShouldEqual, 0)
		})

		Convey("When the body is a JSON array", func() {
			w := do(h, http.MethodPost, "/api/gamification/update", `[{"type":"add","points":5}]`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorOf(w), ShouldEqual, "Invalid request body")
		})

		Convey("When the service cannot apply the change", func() {
			deps.applyErr = errors.New("not started")
			w := do(h, http.MethodPost, "/api/gamification/update", `{"type":"add","points":5}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(errorOf(w), ShouldEqual, "Service unavailable")
		})
	})
}

func TestGamificationHandler_History(t *testing.T) {
	Convey("Given a server with journaled adjustments", t, func() {
		deps := newFakeDeps()
		at := time.Date(2024, time.May, 12, 10, 0, 0, 0, time.UTC)
		for i := 0; i < 30; i++ {
			deps.history = append(deps.history, types.HistoryEntry{
				ID: "id", Type: "add", Points: 1, ScoreAfter: float64(30 - i), LevelAfter: "Expert", At: at,
			})
		}
		h := newHandler(deps, api.WithMaxHistoryLimit(25))

		Convey("When no limit is given", func() {
			w := do(h, http.MethodGet, "/api/gamification/history", "")

			Convey("Then the default limit should apply", func() {
				var entries []types.HistoryEntry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 20)
				So(deps.historyArg, ShouldEqual, 20)
				So(entries[0].At.Equal(at), ShouldBeTrue)
			})
		})

		Convey("When the limit exceeds the maximum", func() {
			do(h, http.MethodGet, "/api/gamification/history?limit=500", "")
			So(deps.historyArg, ShouldEqual, 25)
		})

		Convey("When the limit is small", func() {
			w := do(h, http.MethodGet, "/api/gamification/history?limit=2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.historyArg, ShouldEqual, 2)
		})

		Convey("When the limit is invalid", func() {
			for _, q := range []string{"0", "-1", "abc"} {
				w := do(h, http.MethodGet, "/api/gamification/history?limit="+q, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorOf(w), ShouldEqual, "Invalid limit")
			}
		})
	})
}

func TestFootprintHandler(t *testing.T) {
	Convey("Given a server with canned footprint data", t, func() {
		deps := newFakeDeps()
		h := newHandler(deps)

		Convey("Then the category pie should keep the category order", func() {
			w := do(h, http.MethodGet, "/api/category/pie", "")
			So(w.Body.String(), ShouldEqual,
				`[{"name":"Email","value":42},{"name":"Online Storage","value":12.5},{"name":"Video Streaming","value":3.2}]`+"\n")
		})

		Convey("Then weekly totals should be day/value pairs", func() {
			w := do(h, http.MethodGet, "/api/weekly/total", "")
			So(w.Body.String(), ShouldEqual, `[{"day":"Mon","value":57},{"day":"Tue","value":60}]`+"\n")
		})

		Convey("Then the daily breakdown should use snake_case keys", func() {
			w := do(h, http.MethodGet, "/api/daily_breakdown", "")
			So(w.Body.String(), ShouldEqual, `{"emails_sent":42,"browsing_hours":3.2,"cloud_storage":12.5}`+"\n")
		})

		Convey("Then the total should be a single number", func() {
			w := do(h, http.MethodGet, "/api/total_co2", "")
			So(w.Body.String(), ShouldEqual, `{"total":58}`+"\n")
		})

		Convey("When a provider fails", func() {
			deps.readErr = errors.New("gmail api down")
			w := do(h, http.MethodGet, "/api/total_co2", "")

			Convey("Then it should return 500 without leaking the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(errorOf(w), ShouldEqual, "Failed to read footprint data")
			})
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given a server with default CORS", t, func() {
		h := newHandler(newFakeDeps())

		Convey("When a preflight request arrives", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/gamification/update", http.NoBody)
			req.Header.Set("Origin", "http://localhost:3000")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it should be answered with 204 and CORS headers", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
				So(w.Header().Get("Access-Control-Allow-Methods"), ShouldContainSubstring, "POST")
			})
		})

		Convey("When a request carries an X-Request-ID", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/gamification", http.NoBody)
			req.Header.Set(api.HeaderRequestID, "req-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.HeaderRequestID), ShouldEqual, "req-123")
		})

		Convey("When a request has no X-Request-ID", func() {
			w := do(h, http.MethodGet, "/api/gamification", "")
			So(len(w.Header().Get(api.HeaderRequestID)), ShouldEqual, 36)
		})
	})

	Convey("Given a server restricted to one origin", t, func() {
		h := newHandler(newFakeDeps(), api.WithAllowedOrigins("https://eco.example.com"))

		Convey("Then the allowed origin should be echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/gamification", http.NoBody)
			req.Header.Set("Origin", "https://eco.example.com")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://eco.example.com")
		})

		Convey("Then other origins should get no allow header", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/gamification", http.NoBody)
			req.Header.Set("Origin", "https://evil.example.com")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "")
		})
	})

	Convey("Given an update endpoint with a burst of 2", t, func() {
		deps := newFakeDeps()
		h := newHandler(deps, api.WithUpdateRateLimit(0.001, 2))

		Convey("When a client sends three updates at once", func() {
			first := do(h, http.MethodPost, "/api/gamification/update", `{"type":"add","points":1}`)
			second := do(h, http.MethodPost, "/api/gamification/update", `{"type":"add","points":1}`)
			third := do(h, http.MethodPost, "/api/gamification/update", `{"type":"add","points":1}`)

			Convey("Then the third should be rejected", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(third.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorOf(third), ShouldEqual, "Too many requests")
				So(deps.tracker.Score(), ShouldEqual, 2.0)
			})
		})

		Convey("When another client sends an update", func() {
			do(h, http.MethodPost, "/api/gamification/update", `{"type":"add","points":1}`)
			do(h, http.MethodPost, "/api/gamification/update", `{"type":"add","points":1}`)

			req := httptest.NewRequest(http.MethodPost, "/api/gamification/update", strings.NewReader(`{"type":"add","points":1}`))
			req.RemoteAddr = "198.51.100.7:4000"
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it should have its own budget", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("Then reads should not be limited", func() {
			for i := 0; i < 5; i++ {
				So(do(h, http.MethodGet, "/api/gamification", "").Code, ShouldEqual, http.StatusOK)
			}
		})
	})
}

func doKeyed(h http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/gamification/update", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(api.HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGamificationHandler_Idempotency(t *testing.T) {
	Convey("Given a server with idempotency enabled", t, func() {
		deps := newFakeDeps()
		h := newHandler(deps)

		Convey("When the same keyed request is sent twice", func() {
			first := doKeyed(h, "k-1", `{"type":"add","points":25}`)
			second := doKeyed(h, "k-1", `{"type":"add","points":25}`)

			Convey("Then it should be applied once and replayed once", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(second.Body.String(), ShouldEqual, first.Body.String())
				So(first.Header().Get(api.HeaderIdempotentReplayed), ShouldEqual, "")
				So(second.Header().Get(api.HeaderIdempotentReplayed), ShouldEqual, "true")
				So(deps.applied, ShouldEqual, 1)
				So(deps.tracker.Score(), ShouldEqual, 25.0)
			})
		})

		Convey("When the key is reused with a different body", func() {
			doKeyed(h, "k-2", `{"type":"add","points":25}`)
			w := doKeyed(h, "k-2", `{"type":"add","points":30}`)

			Convey("Then it should be treated as a new request", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get(api.HeaderIdempotentReplayed), ShouldEqual, "")
				So(deps.applied, ShouldEqual, 2)
				So(deps.tracker.Score(), ShouldEqual, 55.0)
			})
		})

		Convey("When requests carry no key", func() {
			doKeyed(h, "", `{"type":"add","points":1}`)
			doKeyed(h, "", `{"type":"add","points":1}`)

			Convey("Then each one should be applied", func() {
				So(deps.applied, ShouldEqual, 2)
			})
		})

		Convey("When the first attempt fails", func() {
			deps.applyErr = errors.New("not started")
			failed := doKeyed(h, "k-3", `{"type":"add","points":5}`)
			deps.applyErr = nil
			retried := doKeyed(h, "k-3", `{"type":"add","points":5}`)

			Convey("Then the retry should be applied", func() {
				So(failed.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(retried.Code, ShouldEqual, http.StatusOK)
				So(retried.Header().Get(api.HeaderIdempotentReplayed), ShouldEqual, "")
				So(deps.applied, ShouldEqual, 1)
			})
		})

		Convey("When a keyed request fails validation", func() {
			bad := doKeyed(h, "k-4", `{"type":"bogus","points":5}`)
			good := doKeyed(h, "k-4", `{"type":"add","points":5}`)

			Convey("Then the key should stay free", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(good.Code, ShouldEqual, http.StatusOK)
				So(deps.applied, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a server with idempotency disabled", t, func() {
		deps := newFakeDeps()
		h := newHandler(deps, api.WithIdempotencyCacheSize(0))

		Convey("When the same keyed request is sent twice", func() {
			doKeyed(h, "k-1", `{"type":"add","points":25}`)
			w := doKeyed(h, "k-1", `{"type":"add","points":25}`)

			Convey("Then both should be applied", func() {
				So(w.Header().Get(api.HeaderIdempotentReplayed), ShouldEqual, "")
				So(deps.applied, ShouldEqual, 2)
				So(deps.tracker.Score(), ShouldEqual, 50.0)
			})
		})
	})
}
