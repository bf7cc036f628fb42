package audit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/promulher-api/internal/domain"
	"github.com/xela07ax/promulher-api/internal/infra"
	"go.uber.org/zap"
)

const maxCapturedBody = 1 << 20

type CaptureOptions struct {
	ExcludePaths    []string
	ExcludeMethods  []string
	IncludeBody     bool
	IncludeQuery    bool
	SensitiveFields []string
}

// Capture — пассивный захват: событие строится по уже отданному ответу.
// Подключается после auth-middleware, иначе Actor в контексте не появится.
type Capture struct {
	auditor         Auditor
	opts            CaptureOptions
	excludedPaths   map[string]struct{}
	excludedMethods map[string]struct{}
	redactor        *Redactor
	logger          *zap.Logger
}

func NewCapture(a Auditor, opts CaptureOptions, logger *zap.Logger) *Capture {
	c := &Capture{
		auditor:         a,
		opts:            opts,
		excludedPaths:   make(map[string]struct{}, len(opts.ExcludePaths)),
		excludedMethods: make(map[string]struct{}, len(opts.ExcludeMethods)),
		redactor:        NewRedactor(opts.SensitiveFields),
		logger:          logger.Named("audit-capture"),
	}
	for _, p := range opts.ExcludePaths {
		c.excludedPaths[p] = struct{}{}
	}
	for _, m := range opts.ExcludeMethods {
		c.excludedMethods[strings.ToUpper(m)] = struct{}{}
	}
	return c
}

// Observation — то, что видно после завершения обработчика.
type Observation struct {
	Request *http.Request
	Body    map[string]any
	Status  int
	Bytes   int
	Elapsed time.Duration
	Start   time.Time
}

func (c *Capture) skip(r *http.Request) bool {
	if _, ok := c.excludedMethods[r.Method]; ok {
		return true
	}
	_, ok := c.excludedPaths[r.URL.Path]
	return ok
}

func (c *Capture) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		var body map[string]any
		if c.opts.IncludeBody {
			body = readJSONBody(r)
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		c.Observe(Observation{
			Request: r,
			Body:    body,
			Status:  ww.Status(),
			Bytes:   ww.BytesWritten(),
			Elapsed: time.Since(start),
			Start:   start,
		})
	})
}

// Observe — пост-ответный хук. Только ставит событие в очередь Recorder,
// запись в хранилище идет в фоне и на ответ не влияет.
func (c *Capture) Observe(o Observation) {
	actor := domain.ActorFromContext(o.Request.Context())
	if actor == nil || actor.ID == "" {
		c.logger.Debug("capture skipped: anonymous request", zap.String("path", o.Request.URL.Path))
		return
	}

	c.auditor.Log(c.Build(actor, o))
}

// Build собирает событие из наблюдения.
func (c *Capture) Build(actor *domain.Actor, o Observation) domain.AuditEvent {
	r := o.Request
	status := o.Status
	if status == 0 {
		status = http.StatusOK
	}

	req := &domain.RequestInfo{
		Method: r.Method,
		URL:    r.URL.RequestURI(),
		Path:   r.URL.Path,
	}
	if c.opts.IncludeQuery {
		if q := r.URL.Query(); len(q) > 0 {
			req.Query = make(map[string]string, len(q))
			for k := range q {
				req.Query[k] = q.Get(k)
			}
		}
	}

	details := domain.Details{
		Description: r.Method + " " + r.URL.Path,
		Request:     req,
		Response: &domain.ResponseInfo{
			StatusCode:    status,
			ResponseTime:  o.Elapsed.Milliseconds(),
			ContentLength: int64(o.Bytes),
		},
		TraceID: infra.TraceID(r.Context()),
	}
	if len(o.Body) > 0 {
		details.Body = c.redactor.Redact(o.Body)
	}

	name := actor.Name
	if name == "" {
		name = "Usuário"
	}
	role := actor.Role
	if role == "" {
		role = domain.RoleUser
	}
	id := actor.ID

	return domain.AuditEvent{
		UserID:    &id,
		UserName:  name,
		UserRole:  role,
		Action:    ActionFromMethod(r.Method),
		Module:    ModuleFromPath(r.URL.Path),
		Details:   details,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Timestamp: o.Start,
	}
}

// readJSONBody читает тело и возвращает его обработчику нетронутым.
func readJSONBody(r *http.Request) map[string]any {
	if r.Body == nil || !strings.Contains(r.Header.Get("Content-Type"), "json") {
		return nil
	}
	orig := r.Body
	raw, err := io.ReadAll(io.LimitReader(orig, maxCapturedBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), orig), orig}
	if err != nil || len(raw) == 0 {
		return nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	return doc
}
