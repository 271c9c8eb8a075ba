// ABOUTME: Tool catalog and dispatcher.
// ABOUTME: Validates arguments, scopes handlers in a transaction, and classifies errors.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/rs/zerolog"

	"github.com/harperreed/ultratrainer/internal/storage"
)

// DefaultTimeout bounds one invocation, including gateway retries.
const DefaultTimeout = 30 * time.Second

// Access declares which transaction scope a handler runs in.
type Access int

const (
	// AccessNone runs outside any transaction (gateway-only tools).
	AccessNone Access = iota
	// AccessRead runs inside Store.View.
	AccessRead
	// AccessWrite runs inside Store.Update and commits only on success.
	AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "none"
	}
}

// Call is what a handler receives.
type Call struct {
	Args      Args
	SessionID string

	// Repo is nil for AccessNone tools.
	Repo storage.Repository
}

// Handler executes a tool. Returned errors are classified by the registry.
type Handler func(ctx context.Context, call Call) (any, error)

// Tool is one catalog entry.
type Tool struct {
	Name        string
	Description string
	Args        []Field
	Returns     *jsonschema.Schema
	Access      Access

	// Check validates relationships between arguments after per-field checks pass.
	Check   func(args Args) error
	Handler Handler
}

// ArgumentSchema renders the tool's arguments as a JSON Schema object.
func (t *Tool) ArgumentSchema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:                 "object",
		Properties:           map[string]*jsonschema.Schema{},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
	for _, f := range t.Args {
		s.Properties[f.Name] = f.schema()
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s
}

// Descriptor is the discovery view of a tool.
type Descriptor struct {
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	ArgumentSchema *jsonschema.Schema `json:"argumentSchema"`
	ReturnSchema   *jsonschema.Schema `json:"returnSchema"`
}

// Registry holds the catalog and dispatches invocations against a store.
type Registry struct {
	tools  []*Tool
	byName map[string]*Tool

	store   storage.Store
	logger  zerolog.Logger
	timeout time.Duration

	catalogOnce sync.Once
	catalog     []Descriptor
	catalogJSON []byte
	catalogErr  error
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout sets the per-invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the invocation logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates an empty registry backed by store.
func NewRegistry(store storage.Store, opts ...Option) *Registry {
	r := &Registry{
		byName:  make(map[string]*Tool),
		store:   store,
		logger:  zerolog.Nop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. Registration order is discovery order.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", t.Name)
	}
	if _, exists := r.byName[t.Name]; exists {
		return fmt.Errorf("tool %s: already registered", t.Name)
	}
	if r.catalog != nil || r.catalogErr != nil {
		return fmt.Errorf("tool %s: registry is sealed after discovery", t.Name)
	}
	if t.Access != AccessNone && r.store == nil {
		return fmt.Errorf("tool %s: %s access needs a store", t.Name, t.Access)
	}

	tool := t
	r.tools = append(r.tools, &tool)
	r.byName[t.Name] = &tool
	return nil
}

// MustRegister is Register that panics on error, for static catalogs.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns every tool in registration order.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Catalog returns the discovery list. It is computed once; later calls return
// the same value, and the registry accepts no further registrations.
func (r *Registry) Catalog() []Descriptor {
	r.buildCatalog()
	return r.catalog
}

// CatalogJSON returns the discovery list as JSON, byte-identical across calls.
func (r *Registry) CatalogJSON() ([]byte, error) {
	r.buildCatalog()
	return r.catalogJSON, r.catalogErr
}

func (r *Registry) buildCatalog() {
	r.catalogOnce.Do(func() {
		catalog := make([]Descriptor, 0, len(r.tools))
		for _, t := range r.tools {
			returns := t.Returns
			if returns == nil {
				returns = &jsonschema.Schema{}
			}
			catalog = append(catalog, Descriptor{
				Name:           t.Name,
				Description:    t.Description,
				ArgumentSchema: t.ArgumentSchema(),
				ReturnSchema:   returns,
			})
		}
		r.catalog = catalog
		r.catalogJSON, r.catalogErr = json.Marshal(catalog)
	})
}

// Invoke dispatches and wraps the outcome in an envelope.
func (r *Registry) Invoke(ctx context.Context, name string, raw json.RawMessage) Envelope {
	result, err := r.Dispatch(ctx, name, raw)
	if err != nil {
		return Failure(err)
	}
	return Success(result)
}

// Dispatch looks up, validates, and runs one tool. The returned error is
// always a *Error.
func (r *Registry) Dispatch(ctx context.Context, name string, raw json.RawMessage) (result any, err error) {
	start := time.Now()
	sessionID := SessionIDFromContext(ctx)
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	var access Access
	defer func() {
		r.logInvocation(name, sessionID, access, time.Since(start), err)
	}()

	tool, ok := r.byName[name]
	if !ok {
		return nil, &Error{Kind: KindUnknownTool, Message: fmt.Sprintf("no tool named %q", name)}
	}
	access = tool.Access

	args, verr := validate(tool, raw)
	if verr != nil {
		return nil, verr
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	call := Call{Args: args, SessionID: sessionID}
	result, err = r.run(ctx, tool, call)
	if err != nil {
		return nil, Classify(err)
	}
	return result, nil
}

func (r *Registry) run(ctx context.Context, tool *Tool, call Call) (any, error) {
	var result any
	scoped := func(repo storage.Repository) error {
		call.Repo = repo
		var err error
		if result, err = handle(ctx, tool, call); err != nil {
			return err
		}
		// A handler that outlived its budget must not commit.
		return ctx.Err()
	}

	var err error
	switch tool.Access {
	case AccessRead:
		err = r.store.View(ctx, scoped)
	case AccessWrite:
		err = r.store.Update(ctx, scoped)
	default:
		err = scoped(nil)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// handle runs the handler, turning a panic into an error so the enclosing
// transaction rolls back.
func handle(ctx context.Context, tool *Tool, call Call) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name, p)
		}
	}()
	return tool.Handler(ctx, call)
}

func (r *Registry) logInvocation(name, sessionID string, access Access, elapsed time.Duration, err error) {
	if err == nil {
		r.logger.Info().
			Str("tool", name).
			Str("session", sessionID).
			Stringer("access", access).
			Dur("duration", elapsed).
			Msg("tool invoked")
		return
	}

	toolErr := Classify(err)
	event := r.logger.Warn()
	if toolErr.Kind == KindStorageError {
		event = r.logger.Error()
	}
	event.
		Str("tool", name).
		Str("session", sessionID).
		Stringer("access", access).
		Dur("duration", elapsed).
		Str("kind", string(toolErr.Kind)).
		AnErr("cause", toolErr.Cause).
		Msg(toolErr.Message)
}
