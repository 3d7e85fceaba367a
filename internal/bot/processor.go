package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/garyellow/buscacursos-bot-go/internal/command"
	"github.com/garyellow/buscacursos-bot-go/internal/course"
	"github.com/garyellow/buscacursos-bot-go/internal/ctxutil"
	domerrors "github.com/garyellow/buscacursos-bot-go/internal/errors"
	"github.com/garyellow/buscacursos-bot-go/internal/logger"
	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/paging"
	"github.com/garyellow/buscacursos-bot-go/internal/render"
	"github.com/garyellow/buscacursos-bot-go/internal/sentry"
	"github.com/garyellow/buscacursos-bot-go/internal/session"
)

// fallbackErrorText is sent when even the error template cannot be rendered.
const fallbackErrorText = "Ha ocurrido un error consultando el buscacursos."

// Searcher runs course queries. *catalog.Service implements it.
type Searcher interface {
	Execute(ctx context.Context, q course.Query) ([]course.Record, error)
}

// Processor runs dialogue turns.
// It is safe for concurrent use; turns of one conversation are serialized.
type Processor struct {
	resolver *command.Resolver
	matcher  *course.Matcher
	searcher Searcher
	store    session.Store
	locker   *session.Locker
	renderer *render.Renderer
	info     render.Info
	pageSize int
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// ProcessorConfig holds the collaborators of a Processor.
type ProcessorConfig struct {
	Matcher  *course.Matcher
	Searcher Searcher
	Store    session.Store
	Locker   *session.Locker // Shared by processors using the same Store
	Renderer *render.Renderer
	Info     render.Info
	PageSize int
	Logger   *logger.Logger
	Metrics  *metrics.Metrics // Optional
}

// NewProcessor creates a processor. A nil Locker gets a private one.
func NewProcessor(cfg ProcessorConfig) *Processor {
	locker := cfg.Locker
	if locker == nil {
		locker = session.NewLocker(cfg.Metrics)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = paging.DefaultPageSize
	}

	return &Processor{
		resolver: command.NewResolver(cfg.Matcher),
		matcher:  cfg.Matcher,
		searcher: cfg.Searcher,
		store:    cfg.Store,
		locker:   locker,
		renderer: cfg.Renderer,
		info:     cfg.Info,
		pageSize: pageSize,
		logger:   cfg.Logger.WithModule("bot"),
		metrics:  cfg.Metrics,
	}
}

// Renderer returns the renderer replies are rendered with.
func (p *Processor) Renderer() *render.Renderer {
	return p.renderer
}

// Handle runs one turn and returns the replies to send, possibly none.
//
// Handle never fails: errors and panics are logged, reported, and turned
// into the generic error reply.
func (p *Processor) Handle(ctx context.Context, upd Update) (replies []Reply) {
	ctx = ctxutil.WithConversationID(ctx, upd.ConversationID)
	if upd.User.ID != "" {
		ctx = ctxutil.WithUserID(ctx, upd.User.ID)
	}

	log := p.logger.WithFields(map[string]any{
		"kind":     upd.Kind.String(),
		"command":  upd.Command,
		"answer":   upd.Text,
		"callback": actionLog(upd),
	})
	log.DebugContext(ctx, "Update received", "user", upd.User.Username, "first_name", upd.User.FirstName)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.WithError(err).
				WithField("stack", string(debug.Stack())).
				ErrorContext(ctx, "Turn panicked")
			sentry.CaptureTurnError(ctx, err, turnTags(upd))
			replies = p.errorReplies(ctx)
		}
	}()

	replies, err := p.handle(ctx, upd)
	if err != nil {
		log.WithError(err).WithField("input", upd.input()).ErrorContext(ctx, "Turn failed")
		sentry.CaptureTurnError(ctx, err, turnTags(upd))
		return p.errorReplies(ctx)
	}
	return replies
}

func turnTags(upd Update) map[string]string {
	return map[string]string{
		"conversation_id": upd.ConversationID,
		"kind":            upd.Kind.String(),
		"command":         upd.Command,
	}
}

func actionLog(upd Update) string {
	if upd.Kind != KindAction {
		return ""
	}
	return upd.Action.Encode()
}

// pendingReply is a reply before rendering.
type pendingReply struct {
	template     string
	data         any
	buttons      func() [][]Button
	edit         bool
	hideKeyboard bool
}

func (p *Processor) handle(ctx context.Context, upd Update) ([]Reply, error) {
	var intent command.Intent
	switch upd.Kind {
	case KindCommand:
		intent = p.resolver.Resolve(upd.Command, upd.Args)
		if !intent.Recognized() {
			p.logger.DebugContext(ctx, "Command ignored", "reason", domerrors.ErrNoMatch.Error(), "command", upd.Command)
			p.recordTurn("ignored")
			return nil, nil
		}
	case KindAction:
		if upd.Action.Type == ActionCommand {
			// A pressed course button behaves like the typed command.
			name, args, _ := command.Parse("/" + upd.Action.Command)
			upd = Update{ConversationID: upd.ConversationID, Kind: KindCommand, Command: name, Args: args, User: upd.User}
			return p.handle(ctx, upd)
		}
	case KindText:
	default:
		return nil, fmt.Errorf("%w: unknown update kind %d", domerrors.ErrInvalidInput, upd.Kind)
	}

	unlock, err := p.locker.Lock(ctx, upd.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("lock conversation: %w", err)
	}
	defer unlock()

	sess, err := p.store.Get(ctx, upd.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		sess = session.New()
	}

	pending, changed, err := p.decide(ctx, sess, upd, intent)
	if changed {
		if putErr := p.store.Put(ctx, upd.ConversationID, sess); putErr != nil {
			return nil, errors.Join(err, fmt.Errorf("save session: %w", putErr))
		}
	}
	if err != nil {
		return nil, err
	}

	return p.renderAll(pending)
}

// decide applies one update to sess. changed reports whether sess must be
// saved.
func (p *Processor) decide(ctx context.Context, sess *session.Session, upd Update, intent command.Intent) (replies []pendingReply, changed bool, err error) {
	switch upd.Kind {
	case KindText:
		return p.answer(ctx, sess, upd.Text)
	case KindAction:
		return p.navigate(ctx, sess, upd.Action.Page)
	}

	p.recordTurn(intent.Action.String())
	wasAwaiting := sess.Awaiting()

	switch intent.Action {
	case command.ActionAskCourse:
		sess.Ask()
		return []pendingReply{{template: render.TemplateCoursesAsk}}, true, nil

	case command.ActionCourseQuery:
		return p.query(ctx, sess, intent.Query)

	case command.ActionCancel:
		sess.Reset()
		return []pendingReply{{template: render.TemplateCancel, hideKeyboard: true}}, wasAwaiting, nil

	case command.ActionStart:
		sess.Reset()
		return []pendingReply{{
			template: render.TemplateStart,
			data:     render.StartData{FirstName: upd.User.FirstName},
		}}, wasAwaiting, nil

	case command.ActionAbout:
		sess.Reset()
		return []pendingReply{{template: render.TemplateAbout, data: p.info}}, wasAwaiting, nil

	case command.ActionUnimplemented:
		sess.Reset()
		return []pendingReply{{template: render.TemplateClassroomUnavailable}}, wasAwaiting, nil

	default:
		return nil, false, fmt.Errorf("unhandled action %s", intent.Action)
	}
}

// answer handles free text. Text is only meaningful while a question is
// pending.
func (p *Processor) answer(ctx context.Context, sess *session.Session, text string) ([]pendingReply, bool, error) {
	if !sess.Awaiting() {
		p.recordTurn("ignored")
		return nil, false, nil
	}

	p.recordTurn("answer")
	if strings.TrimSpace(text) == "" {
		return []pendingReply{{template: render.TemplateCoursesAsk}}, false, nil
	}

	q, matcherName := p.matcher.MatchNamed(text)
	p.logger.DebugContext(ctx, "Answer matched", "matcher", matcherName, "query", q.String())
	return p.query(ctx, sess, q)
}

// query runs q and stores its results. The pending question is cleared
// whether or not the catalog answers.
func (p *Processor) query(ctx context.Context, sess *session.Session, q course.Query) ([]pendingReply, bool, error) {
	records, err := p.searcher.Execute(ctx, q)
	sess.Reset()
	if err != nil {
		return nil, true, err
	}

	sess.SetResults(q.Period, records, p.pageSize)
	return []pendingReply{p.found(sess, false)}, true, nil
}

// navigate shows another page of the stored results. It never queries the
// catalog.
func (p *Processor) navigate(ctx context.Context, sess *session.Session, index int) ([]pendingReply, bool, error) {
	p.recordTurn("navigate")
	if !sess.GoTo(index) {
		p.logger.DebugContext(ctx, "Navigation ignored", "reason", domerrors.ErrInvalidNavigation.Error(), "index", index)
		return nil, false, nil
	}
	return []pendingReply{p.found(sess, true)}, true, nil
}

// found builds the reply for the current page of sess. Records are copied so
// replies never alias session memory.
func (p *Processor) found(sess *session.Session, edit bool) pendingReply {
	page := sess.CurrentPage()
	courses := make([]course.Record, len(page))
	for i, rec := range page {
		courses[i] = rec.Clone()
	}

	data := render.FoundData{
		Period:  sess.Results.Period,
		Paging:  sess.Results.Paging,
		Courses: courses,
	}
	return pendingReply{
		template: render.TemplateCoursesFound,
		data:     data,
		buttons:  func() [][]Button { return foundButtons(p.renderer, data) },
		edit:     edit,
	}
}

func (p *Processor) renderAll(pending []pendingReply) ([]Reply, error) {
	replies := make([]Reply, 0, len(pending))
	for _, pr := range pending {
		text, err := p.renderer.Render(pr.template, pr.data)
		if err != nil {
			return nil, err
		}
		reply := Reply{
			Template:     pr.template,
			Data:         pr.data,
			Text:         text,
			Edit:         pr.edit,
			HideKeyboard: pr.hideKeyboard,
		}
		if pr.buttons != nil {
			reply.Buttons = pr.buttons()
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

// errorReplies is the reply for any failed turn.
func (p *Processor) errorReplies(ctx context.Context) []Reply {
	text, err := p.renderer.Render(render.TemplateCoursesError, nil)
	if err != nil {
		p.logger.WithError(err).ErrorContext(ctx, "Failed to render error reply")
		text = fallbackErrorText
	}
	return []Reply{{Template: render.TemplateCoursesError, Text: text}}
}

func (p *Processor) recordTurn(action string) {
	if p.metrics != nil {
		p.metrics.RecordTurn(action)
	}
}
