package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
	"github.com/garyellow/buscacursos-bot-go/internal/logger"
	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/ratelimit"
)

const (
	testSecret = "channel-secret"
	testToken  = "channel-token"

	replyPath   = "/v2/bot/message/reply"
	loadingPath = "/v2/bot/chat/loading/start"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// apiCall is one request received by the fake Messaging API.
type apiCall struct {
	path string
	auth string
	body map[string]any
}

type fakeLineAPI struct {
	mu    sync.Mutex
	calls []apiCall
	fail  map[string]bool
}

func (f *fakeLineAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body})
	failing := f.fail[r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"Invalid reply token"}`)
		return
	}
	if r.URL.Path == replyPath {
		_, _ = io.WriteString(w, `{"sentMessages":[{"id":"1","quoteToken":"q"}]}`)
		return
	}
	_, _ = io.WriteString(w, `{}`)
}

func (f *fakeLineAPI) failOn(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[path] = true
}

func (f *fakeLineAPI) callsTo(path string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeLineAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.path)
	}
	return out
}

// fakeProcessor records updates and returns canned replies.
type fakeProcessor struct {
	mu       sync.Mutex
	received []bot.Update
	replies  []bot.Reply
}

func (p *fakeProcessor) Handle(_ context.Context, upd bot.Update) []bot.Reply {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = append(p.received, upd)
	return p.replies
}

func (p *fakeProcessor) updates() []bot.Update {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bot.Update(nil), p.received...)
}

type fixture struct {
	api       *fakeLineAPI
	processor *fakeProcessor
	handler   *Handler
	metrics   *metrics.Metrics
	router    *gin.Engine
}

func newFixture(t *testing.T, replies ...bot.Reply) *fixture {
	t.Helper()
	return newFixtureWithMetrics(t, metrics.New(prometheus.NewRegistry()), replies...)
}

// newFixtureWithMetrics builds a fixture recording into m, which may be nil.
func newFixtureWithMetrics(t *testing.T, m *metrics.Metrics, replies ...bot.Reply) *fixture {
	t.Helper()

	api := &fakeLineAPI{fail: map[string]bool{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	processor := &fakeProcessor{replies: replies}
	h, err := NewHandler(HandlerConfig{
		ChannelSecret: testSecret,
		ChannelToken:  testToken,
		Endpoint:      srv.URL,
		Processor:     processor,
		Limiter:       ratelimit.NewOutbound(Channel, 1000, m),
		Logger:        logger.NewWithWriter("debug", io.Discard),
		Metrics:       m,
	})
	require.NoError(t, err)

	router := gin.New()
	router.POST("/callback", h.Handle)
	return &fixture{api: api, processor: processor, handler: h, metrics: m, router: router}
}

// post sends a signed webhook request carrying events.
func (f *fixture) post(t *testing.T, events ...string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"destination":"Ubot","events":[` + strings.Join(events, ",") + `]}`
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	req.Header.Set("X-Line-Signature", sign(testSecret, body))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.handler.Shutdown(ctx))
}

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func userSource(id string) string {
	return `{"type":"user","userId":"` + id + `"}`
}

func groupSource(groupID, userID string) string {
	return `{"type":"group","groupId":"` + groupID + `","userId":"` + userID + `"}`
}

func textEvent(source, text, mention string) string {
	msg := `{"type":"text","id":"m1","quoteToken":"q1","text":` + quote(text)
	if mention != "" {
		msg += `,"mention":` + mention
	}
	msg += `}`
	return `{"type":"message","mode":"active","timestamp":1,"webhookEventId":"01EVENT",` +
		`"deliveryContext":{"isRedelivery":false},"replyToken":"rt-1","source":` + source + `,"message":` + msg + `}`
}

func postbackEvent(source, data string) string {
	return `{"type":"postback","mode":"active","timestamp":1,"webhookEventId":"01POSTBACK",` +
		`"deliveryContext":{"isRedelivery":false},"replyToken":"rt-2","source":` + source +
		`,"postback":{"data":` + quote(data) + `}}`
}

func followEvent(source string) string {
	return `{"type":"follow","mode":"active","timestamp":1,"webhookEventId":"01FOLLOW",` +
		`"deliveryContext":{"isRedelivery":false},"replyToken":"rt-3","source":` + source +
		`,"follow":{"isUnblocked":false}}`
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestHandle_CommandInPersonalChat(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bot.Reply{
		Text: "Resultados",
		Buttons: [][]bot.Button{
			{{Label: "IIC2233-1", Action: bot.Command("course_IIC2233_1")}},
			{{Label: "▶️ Ver más", Action: bot.GoToPage(1)}},
		},
	})

	w := f.post(t, textEvent(userSource("U1"), "/course IIC2233", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	f.drain(t)

	assert.Equal(t, []string{loadingPath, replyPath}, f.api.paths())

	loading := f.api.callsTo(loadingPath)[0]
	assert.Equal(t, "U1", loading.body["chatId"])
	assert.InDelta(t, 20, loading.body["loadingSeconds"], 0)

	reply := f.api.callsTo(replyPath)[0]
	assert.Equal(t, "Bearer "+testToken, reply.auth)
	assert.Equal(t, "rt-1", reply.body["replyToken"])

	messages := reply.body["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "text", msg["type"])
	assert.Equal(t, "Resultados", msg["text"])

	items := msg["quickReply"].(map[string]any)["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)["action"].(map[string]any)
	assert.Equal(t, "postback", first["type"])
	assert.Equal(t, `{"c":"course_IIC2233_1"}`, first["data"])
	assert.Equal(t, "IIC2233-1", first["displayText"])
	second := items[1].(map[string]any)["action"].(map[string]any)
	assert.Equal(t, `{"i":1}`, second["data"])
	assert.NotContains(t, second, "displayText")

	got := f.processor.updates()
	require.Len(t, got, 1)
	assert.Equal(t, "line:U1", got[0].ConversationID)
	assert.Equal(t, bot.KindCommand, got[0].Kind)
	assert.Equal(t, "course", got[0].Command)
	assert.Equal(t, []string{"IIC2233"}, got[0].Args)
	assert.Equal(t, "U1", got[0].User.ID)

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.WebhookRequestsTotal.WithLabelValues(Channel, "command", "success")), 0)
}

func TestHandle_InvalidSignature(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(`{"events":[]}`))
	req.Header.Set("X-Line-Signature", sign("wrong-secret", `{"events":[]}`))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.drain(t)
	assert.Empty(t, f.processor.updates())
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.HTTPErrorsTotal.WithLabelValues("invalid_signature", Channel)), 0)
}

func TestHandle_WithoutMetrics(t *testing.T) {
	t.Parallel()
	f := newFixtureWithMetrics(t, nil, bot.Reply{Text: "Hola"})

	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(`{"events":[]}`))
	req.Header.Set("X-Line-Signature", sign("wrong-secret", `{"events":[]}`))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post(t, textEvent(userSource("U1"), "/start", ""), postbackEvent(userSource("U1"), "not json"))
	assert.Equal(t, http.StatusOK, w.Code)
	f.drain(t)

	assert.Len(t, f.processor.updates(), 1)
	assert.Contains(t, f.api.paths(), replyPath)
}

func TestHandle_EmptyBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// LINE verifies webhook URLs with an empty event list.
	w := f.post(t)
	assert.Equal(t, http.StatusOK, w.Code)
	f.drain(t)
	assert.Empty(t, f.api.paths())
}

func TestHandle_GroupChat(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bot.Reply{Text: "ok"})

	mention := `{"mentionees":[{"type":"user","index":0,"length":7,"userId":"Ubot","isSelf":true}]}`
	w := f.post(t,
		textEvent(groupSource("G1", "U1"), "hola a todos", ""),
		textEvent(groupSource("G1", "U1"), "@Buscar calculo", mention),
	)
	assert.Equal(t, http.StatusOK, w.Code)
	f.drain(t)

	got := f.processor.updates()
	require.Len(t, got, 1)
	assert.Equal(t, "line:G1", got[0].ConversationID)
	assert.Equal(t, bot.KindText, got[0].Kind)
	assert.Equal(t, "calculo", got[0].Text)

	// No loading animation outside personal chats.
	assert.Equal(t, []string{replyPath}, f.api.paths())
}

func TestHandle_Postback(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bot.Reply{Text: "página 2", Edit: true})

	f.post(t, postbackEvent(userSource("U1"), `{"i":1}`))
	f.drain(t)

	got := f.processor.updates()
	require.Len(t, got, 1)
	assert.Equal(t, bot.KindAction, got[0].Kind)
	assert.Equal(t, bot.GoToPage(1), got[0].Action)

	reply := f.api.callsTo(replyPath)
	require.Len(t, reply, 1)
	assert.Equal(t, "rt-2", reply[0].body["replyToken"])
}

func TestHandle_InvalidPostback(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bot.Reply{Text: "never"})

	f.post(t, postbackEvent(userSource("U1"), "action=legacy"))
	f.drain(t)

	assert.Empty(t, f.processor.updates())
	assert.Empty(t, f.api.paths())
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.WebhookRequestsTotal.WithLabelValues(Channel, "action", "invalid")), 0)
}

func TestHandle_FollowStarts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bot.Reply{Text: "¡Hola!"})

	f.post(t, followEvent(userSource("U9")))
	f.drain(t)

	got := f.processor.updates()
	require.Len(t, got, 1)
	assert.Equal(t, bot.KindCommand, got[0].Kind)
	assert.Equal(t, "start", got[0].Command)
	assert.Equal(t, "line:U9", got[0].ConversationID)
}

func TestHandle_ReplyFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bot.Reply{Text: "ok"})
	f.api.failOn(replyPath)

	f.post(t, textEvent(userSource("U1"), "/start", ""))
	f.drain(t)

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.WebhookRequestsTotal.WithLabelValues(Channel, "command", "reply_error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.OutboundMessagesTotal.WithLabelValues(Channel, "error")), 0)
}

func TestHandle_NoReplies(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.post(t, textEvent(userSource("U1"), "/start", ""))
	f.drain(t)

	assert.Empty(t, f.api.callsTo(replyPath))
}

func TestHandle_UserRateLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bot.Reply{Text: "ok"})

	events := make([]string, int(userBurst)+3)
	for i := range events {
		events[i] = textEvent(userSource("U1"), "/start", "")
	}
	f.post(t, events...)
	f.drain(t)

	assert.Len(t, f.processor.updates(), int(userBurst))
	assert.InDelta(t, 3, testutil.ToFloat64(f.metrics.WebhookRequestsTotal.WithLabelValues(Channel, "command", "rate_limited")), 0)
}

func TestBuildMessages_Truncates(t *testing.T) {
	t.Parallel()
	replies := make([]bot.Reply, 7)
	for i := range replies {
		replies[i] = bot.Reply{Text: "r"}
	}
	assert.Len(t, buildMessages(replies), 5)
}

func TestQuickReplyItems_Flattens(t *testing.T) {
	t.Parallel()
	items := quickReplyItems([][]bot.Button{
		{{Label: "a", Action: bot.GoToPage(0)}, {Label: "b", Action: bot.GoToPage(2)}},
		{{Label: "c", Action: bot.Command("about")}},
	})
	assert.Len(t, items, 3)
	assert.Empty(t, quickReplyItems(nil))
}
