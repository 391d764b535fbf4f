package connector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"mercator-hq/restconnector/pkg/config"
	"mercator-hq/restconnector/pkg/resource"
	"mercator-hq/restconnector/pkg/rest"
	"mercator-hq/restconnector/pkg/telemetry/logging"
	"mercator-hq/restconnector/pkg/telemetry/tracing"
	"mercator-hq/restconnector/pkg/template"
	"mercator-hq/restconnector/pkg/transport"
)

// Recorder receives request and template build metrics. It is satisfied
// by the metrics collector.
type Recorder interface {
	transport.Recorder
	rest.BuildRecorder
}

// Operation is one configured request template.
type Operation struct {
	// Name is the operation label used in logs and metrics
	Name string

	// Builder holds the operation's request template
	Builder *rest.RequestBuilder

	// Functions lists the names of the functions bound to the operation
	Functions []string
}

// Invoke sends the operation's template built with params.
func (o *Operation) Invoke(ctx context.Context, params template.Params) (*rest.Result, error) {
	return o.Builder.Invoke(logging.WithOperation(ctx, o.Name), params)
}

// Connector exposes configured request templates as named functions and,
// when enabled, a CRUD data access object over REST resources.
type Connector struct {
	cfg      *config.Config
	client   *transport.Client
	logger   *slog.Logger
	recorder Recorder
	tracer   *tracing.Tracer

	operations []*Operation
	functions  map[string]*Function

	mu     sync.RWMutex
	models map[string]*resource.Resource
}

// Option configures a Connector.
type Option func(*Connector)

// WithClient sets the HTTP client shared by every operation and model.
func WithClient(c *transport.Client) Option {
	return func(conn *Connector) {
		if c != nil {
			conn.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(conn *Connector) {
		if l != nil {
			conn.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(conn *Connector) {
		conn.recorder = r
	}
}

// WithTracer starts a span for every function call.
func WithTracer(t *tracing.Tracer) Option {
	return func(conn *Connector) {
		conn.tracer = t
	}
}

// New creates a connector from cfg. Every operation template is loaded and
// compiled up front, so a connector that was created can build all of its
// functions.
func New(cfg *config.Config, opts ...Option) (*Connector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("connector config is nil")
	}

	c := &Connector{
		cfg:       cfg,
		logger:    slog.Default(),
		functions: make(map[string]*Function),
		models:    make(map[string]*resource.Resource),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		clientOpts := []transport.Option{transport.WithLogger(c.logger)}
		if c.recorder != nil {
			clientOpts = append(clientOpts, transport.WithRecorder(c.recorder))
		}
		cc := cfg.Connector
		c.client = transport.NewClient(transport.Config{
			Name:                cc.Name,
			Timeout:             cc.Timeout,
			MaxRetries:          cc.MaxRetries,
			RetryBackoff:        cc.RetryBackoff,
			MaxIdleConns:        cc.MaxIdleConns,
			MaxIdleConnsPerHost: cc.MaxIdleConnsPerHost,
			IdleConnTimeout:     cc.IdleConnTimeout,
			Headers:             cc.Headers,
			BaseDir:             cfg.Dir,
		}, clientOpts...)
	}

	for _, opCfg := range cfg.Operations {
		if err := c.addOperation(opCfg); err != nil {
			return nil, err
		}
	}

	if cfg.CRUDEnabled() {
		for _, m := range cfg.Models {
			c.Define(m.Name, m.ResourceName)
		}
	}

	c.logger.Debug("connector created",
		"operations", len(c.operations),
		"functions", len(c.functions),
		"crud", cfg.CRUDEnabled(),
	)

	return c, nil
}

func (c *Connector) addOperation(opCfg config.OperationConfig) error {
	label := opCfg.Label()

	tmpl, err := c.cfg.LoadTemplate(opCfg)
	if err != nil {
		return fmt.Errorf("operation %q: %w", label, err)
	}

	builderOpts := []rest.Option{
		rest.WithClient(c.client),
		rest.WithLogger(c.logger),
		rest.WithName(label),
	}
	if c.recorder != nil {
		builderOpts = append(builderOpts, rest.WithBuildRecorder(c.recorder))
	}
	builder, err := rest.FromTemplate(tmpl.Document(), builderOpts...)
	if err != nil {
		return fmt.Errorf("operation %q: %w", label, err)
	}
	builder.Debug(c.cfg.Connector.Debug)

	schema, err := builder.Schema()
	if err != nil {
		return fmt.Errorf("operation %q: %w", label, err)
	}
	verb := template.Stringify(builder.JSON()[rest.KeyMethod])

	op := &Operation{Name: label, Builder: builder}

	for _, name := range opCfg.FunctionNames() {
		if name == InvokeFunction {
			return fmt.Errorf("operation %q: function name %q is reserved", label, name)
		}
		if existing, dup := c.functions[name]; dup {
			return fmt.Errorf("operation %q: function %q is already defined by operation %q", label, name, existing.Operation)
		}

		params := opCfg.Functions[name]
		fn := describe(name, verb, params, schema)
		fn.Operation = label

		names := make([]string, len(params))
		for i, p := range params {
			names[i] = p.Name
		}
		fn.call, err = builder.Operation(names...)
		if err != nil {
			return fmt.Errorf("operation %q: function %q: %w", label, name, err)
		}

		c.functions[name] = &fn
		op.Functions = append(op.Functions, name)
	}

	// The last operation owns the invoke function.
	invoke := describeInvoke(label)
	invoke.call = func(ctx context.Context, args ...any) (*rest.Result, error) {
		params, err := invokeParams(args)
		if err != nil {
			return nil, err
		}
		return builder.Invoke(ctx, params)
	}
	c.functions[InvokeFunction] = &invoke

	c.operations = append(c.operations, op)
	return nil
}

func invokeParams(args []any) (template.Params, error) {
	if len(args) == 0 || args[0] == nil {
		return template.Params{}, nil
	}
	switch v := args[0].(type) {
	case template.Params:
		return v, nil
	case map[string]any:
		return template.Params(v), nil
	}
	return nil, fmt.Errorf("invoke expects a request object, got %T", args[0])
}

// Call invokes the named function with positional arguments.
func (c *Connector) Call(ctx context.Context, name string, args ...any) (*rest.Result, error) {
	fn, ok := c.functions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}

	ctx = logging.WithOperation(logging.WithFunction(ctx, name), fn.Operation)

	ctx, span := c.tracer.Start(ctx, name)
	defer span.End()
	tracing.SetCallAttributes(span, name, fn.Operation)
	tracing.SetRequestID(span, logging.GetRequestID(ctx))

	start := time.Now()
	res, err := fn.call(ctx, args...)
	tracing.SetStatus(span, err)
	if err != nil {
		c.logger.WarnContext(ctx, "function call failed",
			"error", err,
			"duration", time.Since(start),
		)
		return nil, err
	}

	c.logger.DebugContext(ctx, "function called",
		"status", res.StatusCode(),
		"duration", time.Since(start),
	)
	return res, nil
}

// Invoke sends the template of the last configured operation built with
// params.
func (c *Connector) Invoke(ctx context.Context, params template.Params) (*rest.Result, error) {
	return c.Call(ctx, InvokeFunction, params)
}

// Function returns the named function.
func (c *Connector) Function(name string) (*Function, bool) {
	fn, ok := c.functions[name]
	return fn, ok
}

// Functions returns every function sorted by name.
func (c *Connector) Functions() []*Function {
	fns := make([]*Function, 0, len(c.functions))
	for _, fn := range c.functions {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	return fns
}

// Operation returns the operation with the given label.
func (c *Connector) Operation(name string) (*Operation, bool) {
	for _, op := range c.operations {
		if op.Name == name {
			return op, true
		}
	}
	return nil, false
}

// Operations returns the operations in configuration order.
func (c *Connector) Operations() []*Operation {
	return append([]*Operation(nil), c.operations...)
}

// Config returns the configuration the connector was created from.
func (c *Connector) Config() *config.Config {
	return c.cfg
}

// Client returns the shared HTTP client.
func (c *Connector) Client() *transport.Client {
	return c.client
}

// Close releases idle connections.
func (c *Connector) Close() {
	c.client.CloseIdleConnections()
}
