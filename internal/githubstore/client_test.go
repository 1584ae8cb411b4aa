package githubstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestbook-gateway/internal/guestbook"
)

func newTestClient(t *testing.T, mux *http.ServeMux, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := Config{
		Token:   "tkn",
		Owner:   "o",
		Repo:    "r",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	logger, _ := test.NewNullLogger()
	c, err := New(cfg, logger)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestCreateIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/o/r/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "🕊️ Message — Ana", got["title"])
		assert.Equal(t, []any{"guestbook"}, got["labels"])

		writeJSON(w, http.StatusCreated, `{"id":10,"number":5,"html_url":"https://github.com/o/r/issues/5"}`)
	})
	c := newTestClient(t, mux)

	issue, err := c.CreateIssue(context.Background(), guestbook.FormatIssue("Ana", "", "oi!", time.Now()))

	require.NoError(t, err)
	assert.Equal(t, 5, issue.Number)
	assert.Equal(t, "https://github.com/o/r/issues/5", issue.URL)
}

func TestCreateReaction(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/o/r/issues/1/reactions", func(w http.ResponseWriter, r *http.Request) {
		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "heart", got["content"])
		writeJSON(w, http.StatusCreated, `{"id":1,"content":"heart"}`)
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.CreateReaction(context.Background(), 1, "heart"))
}

func TestReactionCount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/issues/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"number":1,"reactions":{"total_count":5,"+1":2,"heart":3}}`)
	})
	c := newTestClient(t, mux)

	for label, want := range map[string]int{"heart": 3, "+1": 2, "rocket": 0, "bogus": 0} {
		n, err := c.ReactionCount(context.Background(), 1, label)
		require.NoError(t, err)
		assert.Equal(t, want, n, label)
	}
}

func TestSearchIssues(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search/issues", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "repo:o/r label:guestbook is:issue", q.Get("q"))
		assert.Equal(t, "created", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("order"))
		assert.Equal(t, "50", q.Get("per_page"))
		writeJSON(w, http.StatusOK, `{"total_count":1,"items":[{
			"id":99,"number":7,"title":"t","body":"b",
			"html_url":"https://github.com/o/r/issues/7","created_at":"2025-02-01T10:00:00Z"}]}`)
	})
	c := newTestClient(t, mux)

	issues, err := c.SearchIssues(context.Background(), "repo:o/r label:guestbook is:issue", 50)

	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, guestbook.Issue{
		ID:        99,
		Number:    7,
		Title:     "t",
		Body:      "b",
		URL:       "https://github.com/o/r/issues/7",
		CreatedAt: time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}, issues[0])
}

func TestListFiles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"ref":"refs/heads/main","object":{"type":"commit","sha":"c1"}}`)
	})
	mux.HandleFunc("GET /repos/o/r/git/commits/c1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"sha":"c1","tree":{"sha":"t1"}}`)
	})
	mux.HandleFunc("GET /repos/o/r/git/trees/t1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		writeJSON(w, http.StatusOK, `{"sha":"t1","truncated":false,"tree":[
			{"path":"assets","type":"tree"},
			{"path":"assets/2025/02/1_a.png","type":"blob"},
			{"path":"README.md","type":"blob"}]}`)
	})
	c := newTestClient(t, mux)

	files, err := c.ListFiles(context.Background(), "main")

	require.NoError(t, err)
	assert.Equal(t, []string{"assets/2025/02/1_a.png", "README.md"}, files)
}

func TestListFilesMissingSHA(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"ref":"refs/heads/main","object":{"type":"commit","sha":"c1"}}`)
	})
	mux.HandleFunc("GET /repos/o/r/git/commits/c1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"sha":"c1","tree":{}}`)
	})
	mux.HandleFunc("GET /repos/o/r/git/ref/heads/empty", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"ref":"refs/heads/empty","object":{"type":"commit"}}`)
	})
	c := newTestClient(t, mux)

	var sha *guestbook.MissingSHAError
	_, err := c.ListFiles(context.Background(), "main")
	require.ErrorAs(t, err, &sha)
	assert.Equal(t, "Cannot read tree SHA", sha.Error())

	_, err = c.ListFiles(context.Background(), "empty")
	require.ErrorAs(t, err, &sha)
	assert.Equal(t, "Cannot read branch SHA", sha.Error())
}

func TestPutFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /repos/o/r/contents/assets/2025/02/1_a.png", func(w http.ResponseWriter, r *http.Request) {
		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "chore(assets): upload 1_a.png", got["message"])
		assert.Equal(t, "main", got["branch"])
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png")), got["content"])
		writeJSON(w, http.StatusCreated, `{"content":{"download_url":"https://raw.githubusercontent.com/o/r/main/assets/2025/02/1_a.png"}}`)
	})
	c := newTestClient(t, mux)

	url, err := c.PutFile(context.Background(), "assets/2025/02/1_a.png", "chore(assets): upload 1_a.png", "main", []byte("png"))

	require.NoError(t, err)
	assert.Equal(t, "https://raw.githubusercontent.com/o/r/main/assets/2025/02/1_a.png", url)
}

func TestRawURL(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())
	assert.Equal(t, "https://raw.githubusercontent.com/o/r/main/assets/x.png", c.RawURL("main", "assets/x.png"))
}

func TestErrorResponseBecomesStoreError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/o/r/issues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"message":"Validation Failed"}`)
	})
	c := newTestClient(t, mux)

	_, err := c.CreateIssue(context.Background(), guestbook.NewIssue{Title: "x"})

	var se *guestbook.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	assert.Equal(t, "Validation Failed", se.Message)
}

func TestBreakerOpensOnServerErrorsOnly(t *testing.T) {
	status := http.StatusNotFound
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/issues/1", func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, status, `{"message":"nope"}`)
	})
	c := newTestClient(t, mux, func(cfg *Config) {
		cfg.MaxFailures = 2
		cfg.BreakerCooldown = time.Minute
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.ReactionCount(ctx, 1, "heart")
		assert.NotErrorIs(t, err, guestbook.ErrStoreUnavailable)
	}

	status = http.StatusInternalServerError
	for i := 0; i < 2; i++ {
		_, err := c.ReactionCount(ctx, 1, "heart")
		var se *guestbook.StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.Status)
	}

	_, err := c.ReactionCount(ctx, 1, "heart")
	assert.ErrorIs(t, err, guestbook.ErrStoreUnavailable)
	assert.Equal(t, 5, calls)
}

func TestCallDeadline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/issues/1", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	c := newTestClient(t, mux, func(cfg *Config) { cfg.Timeout = 20 * time.Millisecond })

	_, err := c.ReactionCount(context.Background(), 1, "heart")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestThrottleDeadlineIsTimeoutAndKeepsBreakerClosed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/issues/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"number":1}`)
	})
	c := newTestClient(t, mux, func(cfg *Config) {
		cfg.RPS = 0.001
		cfg.Burst = 1
		cfg.Timeout = 50 * time.Millisecond
		cfg.MaxFailures = 2
	})
	ctx := context.Background()

	_, err := c.ReactionCount(ctx, 1, "heart")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = c.ReactionCount(ctx, 1, "heart")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, guestbook.ErrStoreUnavailable)
	}
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())
}

func TestCanceledCallerDoesNotTripBreaker(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/issues/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"number":1}`)
	})
	c := newTestClient(t, mux, func(cfg *Config) {
		cfg.MaxFailures = 2
		cfg.BreakerCooldown = time.Minute
	})

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		_, err := c.ReactionCount(canceled, 1, "heart")
		assert.ErrorIs(t, err, context.Canceled)
	}

	_, err := c.ReactionCount(context.Background(), 1, "heart")
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, c.breaker.State())
}

func TestCallerHangingUpMidRequestDoesNotTripBreaker(t *testing.T) {
	var hang atomic.Bool
	hang.Store(true)
	started := make(chan struct{}, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/issues/1", func(w http.ResponseWriter, r *http.Request) {
		if hang.Load() {
			started <- struct{}{}
			<-r.Context().Done()
			return
		}
		writeJSON(w, http.StatusOK, `{"number":1}`)
	})
	c := newTestClient(t, mux, func(cfg *Config) {
		cfg.MaxFailures = 2
		cfg.BreakerCooldown = time.Minute
	})

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()
		_, err := c.ReactionCount(ctx, 1, "heart")
		assert.ErrorIs(t, err, context.Canceled)
		cancel()
	}

	hang.Store(false)
	_, err := c.ReactionCount(context.Background(), 1, "heart")
	require.NoError(t, err)
}
