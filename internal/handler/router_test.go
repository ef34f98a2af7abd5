package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/people/backend/internal/metrics"
	"github.com/zhouzirui/people/backend/internal/model/person"
	"github.com/zhouzirui/people/backend/internal/service/people"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	m := metrics.New()
	hub := people.NewHub(8)
	svc := people.NewService(person.NewMemoryStore(person.SeedNames()), hub, m)

	srv := httptest.NewServer(NewRouter(svc, m, RouterOptions{CORSOrigins: []string{"*"}, TraceRequests: true}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv
}

func postPerson(t *testing.T, baseURL, name string) person.Person {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"name": name})
	resp, err := http.Post(baseURL+"/people", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var p person.Person
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	return p
}

func TestHello(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/hello")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello world", string(body))
}

func TestPeopleScenario(t *testing.T) {
	srv := newTestServer(t)

	olga := postPerson(t, srv.URL, "Olga")
	assert.Equal(t, person.Person{ID: 5, Name: "Olga"}, olga)

	resp, err := http.Get(srv.URL + "/people/5")
	require.NoError(t, err)
	var got person.Person
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, olga, got)

	resp, err = http.Get(srv.URL + "/people")
	require.NoError(t, err)
	var all []person.Person
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	resp.Body.Close()
	assert.Len(t, all, 5)

	resp, err = http.Get(srv.URL + "/people/999")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	postPerson(t, srv.URL, "Olga")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "people_created_total 1")
}

func TestEventsStream(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/people/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	created := postPerson(t, srv.URL, "Madhura")

	scanner := bufio.NewScanner(resp.Body)
	var sawEvent bool
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: "+people.EventPersonCreated {
			sawEvent = true
			continue
		}
		if sawEvent && strings.HasPrefix(line, "data: ") {
			var evt people.Event
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt))
			assert.Equal(t, created, evt.Person)
			return
		}
	}
	t.Fatalf("stream ended without event: %v", scanner.Err())
}

func TestWebSocketFeed(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/people/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	created := postPerson(t, srv.URL, "Kimly")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var evt people.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, people.EventPersonCreated, evt.Type)
	assert.Equal(t, created, evt.Person)
}

func TestTraceLogsRecoveredStatus(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	svc := people.NewService(person.NewMemoryStore(nil), nil, nil)
	router := NewRouter(svc, nil, RouterOptions{TraceRequests: true})
	router.(*chi.Mux).Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "[trace] stop GET /boom")
	assert.Contains(t, buf.String(), "status=500")
}
