package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/ringside/internal/adapters/broadcast"
	"github.com/okian/ringside/internal/adapters/http/api"
	service "github.com/okian/ringside/internal/app"
	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

func newMux(svc *service.Service) *http.ServeMux {
	server, err := api.NewServer(svc, svc, api.WithPingInterval(time.Second))
	So(err, ShouldBeNil)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func startedService() *service.Service {
	svc := service.New(service.WithWorkerCount(1), service.WithQueueSize(16))
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func eventBody(corner string, ts int64) string {
	return fmt.Sprintf(`{
		"bout_id": "bout-1",
		"round": 1,
		"actor_id": "judge-1",
		"corner": %q,
		"event_type": "jab",
		"severity": 0.5,
		"confidence": 0.9,
		"timestamp_ms": %d,
		"source": "manual",
		"device_id": "tablet-1"
	}`, corner, ts)
}

func TestServer_Events(t *testing.T) {
	Convey("Given an API over a started service", t, func() {
		svc := startedService()
		defer svc.Stop()
		mux := newMux(svc)

		Convey("When a valid event is posted twice", func() {
			first := do(mux, http.MethodPost, "/events", eventBody("red", 1000))
			second := do(mux, http.MethodPost, "/events", eventBody("red", 1000))

			Convey("Then the first is created and the retry is a duplicate", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusOK)

				var a, b service.SubmitResult
				So(json.Unmarshal(first.Body.Bytes(), &a), ShouldBeNil)
				So(json.Unmarshal(second.Body.Bytes(), &b), ShouldBeNil)
				So(a.IsDuplicate, ShouldBeFalse)
				So(a.Normalized, ShouldNotBeNil)
				So(b.IsDuplicate, ShouldBeTrue)
				So(b.EventHash, ShouldEqual, a.EventHash)
			})

			Convey("Then the round score reflects one jab", func() {
				w := do(mux, http.MethodGet, "/bouts/bout-1/rounds/1/score", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var res struct {
					Card model.RoundScoreCard `json:"card"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.Card.ScoreString, ShouldEqual, "10-9")
			})
		})

		Convey("When the body breaks the schema", func() {
			w := do(mux, http.MethodPost, "/events", eventBody("green", 1000))

			Convey("Then it is rejected with 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/events", "{")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a knockdown arrives without a tier", func() {
			body := strings.Replace(eventBody("red", 1000), `"jab"`, `"knockdown"`, 1)
			w := do(mux, http.MethodPost, "/events", body)

			Convey("Then domain validation names the field", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var resp struct {
					Field string `json:"field"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Field, ShouldEqual, "tier")
			})
		})

		Convey("When detections from two cameras are posted", func() {
			body := `{"detections": [
				{"bout_id":"bout-1","round":1,"actor_id":"cv","corner":"blue","event_type":"hook","severity":0.4,"confidence":0.8,"timestamp_ms":3000,"vendor_id":"east","device_id":"cam-east"},
				{"bout_id":"bout-1","round":1,"actor_id":"cv","corner":"blue","event_type":"hook","severity":0.6,"confidence":0.9,"timestamp_ms":3015,"vendor_id":"west","device_id":"cam-west"}
			]}`
			w := do(mux, http.MethodPost, "/detections", body)

			Convey("Then they fuse into one accepted event", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var res service.DetectionResult
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.Accepted, ShouldEqual, 1)
				So(res.Fused, ShouldEqual, 1)
			})
		})

		Convey("When the detection batch is empty", func() {
			w := do(mux, http.MethodPost, "/detections", `{"detections": []}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_RoundsAndBouts(t *testing.T) {
	Convey("Given an API over a started service", t, func() {
		svc := startedService()
		defer svc.Stop()
		mux := newMux(svc)

		Convey("When a round is opened, scored and finalized", func() {
			So(do(mux, http.MethodPost, "/bouts/bout-2/rounds/1/open", "").Code, ShouldEqual, http.StatusOK)
			score := do(mux, http.MethodGet, "/bouts/bout-2/rounds/1/score", "")
			final := do(mux, http.MethodPost, "/bouts/bout-2/rounds/1/finalize", `{"actor":"supervisor"}`)

			Convey("Then each step succeeds and the audit chain verifies", func() {
				So(score.Code, ShouldEqual, http.StatusOK)
				So(final.Code, ShouldEqual, http.StatusOK)

				w := do(mux, http.MethodGet, "/bouts/bout-2/audit/verify", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var v model.VerificationResult
				So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
				So(v.Valid, ShouldBeTrue)
				So(v.TotalEntries, ShouldEqual, 2)
			})

			Convey("Then strict verification of the intact chain is a 200", func() {
				w := do(mux, http.MethodGet, "/bouts/bout-2/audit/verify?strict=true", "")
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When finalize has no actor", func() {
			w := do(mux, http.MethodPost, "/bouts/bout-2/rounds/1/finalize", `{}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the round is not a number", func() {
			w := do(mux, http.MethodGet, "/bouts/bout-2/rounds/one/score", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When asking about a round nobody touched", func() {
			So(do(mux, http.MethodGet, "/bouts/ghost/rounds/1/score", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/bouts/ghost/rounds/1/ledger/verify", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/bouts/ghost/audit/verify", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When an operator records a decision", func() {
			So(do(mux, http.MethodPost, "/events", eventBody("blue", 1000)).Code, ShouldEqual, http.StatusCreated)
			w := do(mux, http.MethodPost, "/bouts/bout-1/audit", `{"event_type":"point_deduction","payload":{"corner":"blue"},"actor":"referee"}`)

			Convey("Then it is appended and listed", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				list := do(mux, http.MethodGet, "/bouts/bout-1/audit", "")
				So(list.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Count   int                `json:"count"`
					Entries []model.AuditEntry `json:"entries"`
				}
				So(json.Unmarshal(list.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Count, ShouldEqual, 2)
				So(resp.Entries[1].EventType, ShouldEqual, "point_deduction")
			})
		})

		Convey("When an operator tries a reserved audit type", func() {
			w := do(mux, http.MethodPost, "/bouts/bout-1/audit", `{"event_type":"bout_closed","actor":"referee"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a bout is closed", func() {
			So(do(mux, http.MethodPost, "/events", eventBody("red", 1000)).Code, ShouldEqual, http.StatusCreated)
			w := do(mux, http.MethodPost, "/bouts/bout-1/close", `{"actor":"supervisor"}`)

			Convey("Then later writes conflict", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(do(mux, http.MethodPost, "/events", eventBody("red", 2000)).Code, ShouldEqual, http.StatusConflict)
				So(do(mux, http.MethodPost, "/bouts/bout-1/close", `{"actor":"supervisor"}`).Code, ShouldEqual, http.StatusConflict)
				So(do(mux, http.MethodGet, "/bouts/bout-1/stream", "").Code, ShouldEqual, http.StatusConflict)
			})
		})
	})
}

func TestServer_Unavailable(t *testing.T) {
	Convey("Given an API over a service that was never started", t, func() {
		svc := service.New()
		mux := newMux(svc)

		Convey("Then writes report 503", func() {
			So(do(mux, http.MethodPost, "/events", eventBody("red", 1000)).Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("Then health and stats still answer", func() {
			So(do(mux, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":false`)
		})

		Convey("Then unknown methods are refused by the mux", func() {
			So(do(mux, http.MethodGet, "/events", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_Stream(t *testing.T) {
	Convey("Given a live HTTP server", t, func() {
		svc := startedService()
		defer svc.Stop()
		srv := httptest.NewServer(newMux(svc))
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/bouts/bout-1/stream"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("When an event is submitted", func() {
			resp, err := http.Post(srv.URL+"/events", "application/json", strings.NewReader(eventBody("red", 1000)))
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			Convey("Then the subscriber receives the rescored card", func() {
				_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
				var u broadcast.Update
				So(conn.ReadJSON(&u), ShouldBeNil)
				So(u.BoutID, ShouldEqual, "bout-1")
				So(u.Card.ScoreString, ShouldEqual, "10-9")
			})
		})

		Convey("When the bout is closed", func() {
			resp, err := http.Post(srv.URL+"/bouts/bout-1/close", "application/json", strings.NewReader(`{"actor":"supervisor"}`))
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then the stream ends with a normal close", func() {
				_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
				_, _, err := conn.ReadMessage()
				So(websocket.IsCloseError(err, websocket.CloseNormalClosure), ShouldBeTrue)
			})
		})
	})
}
