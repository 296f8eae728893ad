package llmreplay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/manishiitg/llm-replay-go/interfaces"
	"github.com/manishiitg/llm-replay-go/internal/recorder"
)

// ErrNoTestContext is returned when a call is intercepted before SetTestContext
var ErrNoTestContext = errors.New("no test context selected: call SetTestContext first")

// Interceptor is the single entry point a host installs in front of its model
// calls. It routes every call to the recorder, replayer or verifier depending
// on the configured Mode.
type Interceptor struct {
	mu      sync.RWMutex
	config  Config
	logger  interfaces.Logger
	store   *recorder.Store
	session *recorder.Session

	recorder *recorder.Recorder
	replayer *recorder.Replayer
	verifier *recorder.Verifier
}

// NewInterceptor creates an interceptor. The Mode is fixed for its lifetime.
func NewInterceptor(config Config) (*Interceptor, error) {
	if config.Mode == "" {
		config.Mode = ModePlayback
	}
	if _, err := recorder.ParseMode(string(config.Mode)); err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = &noopLoggerImpl{}
	}
	if config.BaseDir == "" {
		config.BaseDir = recorder.DefaultBaseDir
	}

	store, err := recorder.NewStore(config.BaseDir, config.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording store: %w", err)
	}

	replayer := recorder.NewReplayer(config)
	return &Interceptor{
		config:   config,
		logger:   config.Logger,
		store:    store,
		recorder: recorder.NewRecorder(config),
		replayer: replayer,
		verifier: recorder.NewVerifier(config, replayer),
	}, nil
}

// Mode returns the configured mode
func (i *Interceptor) Mode() Mode {
	return i.config.Mode
}

// Store returns the recording store used for loading and saving
func (i *Interceptor) Store() *recorder.Store {
	return i.store
}

// SetTestContext starts a fresh session for (suite, test). In record mode any
// previous in-memory records are discarded; otherwise the recording file of
// the test is loaded.
func (i *Interceptor) SetTestContext(suite, test string) {
	tc := recorder.TestContext{SuiteName: suite, TestName: test}

	var records []recorder.CallRecord
	if i.config.Mode != ModeRecord {
		records = i.store.Load(suite, test)
	}
	session := recorder.NewSession(tc, i.config, records)

	i.mu.Lock()
	i.session = session
	i.mu.Unlock()

	i.logger.Infof("[INTERCEPTOR] Test context %s (%s mode, %d recordings, run %s)", tc, i.config.Mode, len(records), session.RunID())
}

// Session returns the current session, or nil before SetTestContext
func (i *Interceptor) Session() *recorder.Session {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.session
}

// Intercept performs one call for callerID. live is the host's real model
// call; it is only invoked in record and verify mode.
func (i *Interceptor) Intercept(ctx context.Context, callerID, callKind string, payload Payload, live LiveCallFunc) (any, error) {
	session := i.Session()
	if session == nil {
		return nil, ErrNoTestContext
	}

	call := session.NextCall(callerID, callKind, payload)
	i.logger.Debugf("[INTERCEPTOR] %s (%s)", call.Label(), i.config.Mode)

	switch i.config.Mode {
	case ModeRecord:
		return i.recorder.Record(ctx, session, call, live)
	case ModeVerify:
		return i.verifier.Verify(ctx, session, call, live)
	default:
		return i.replayer.Replay(ctx, session, call)
	}
}

// Wrap binds live to callerID and returns the intercepted function. After
// uninstall is called the wrapped function passes straight through to live.
func (i *Interceptor) Wrap(callerID string, live LiveCallFunc) (LiveCallFunc, func()) {
	var installed atomic.Bool
	installed.Store(true)

	wrapped := func(ctx context.Context, callKind string, payload Payload) (any, error) {
		if !installed.Load() {
			return live(ctx, callKind, payload)
		}
		return i.Intercept(ctx, callerID, callKind, payload, live)
	}
	uninstall := func() {
		installed.Store(false)
	}
	return wrapped, uninstall
}

// SaveRecordings flushes the current session to disk. It only writes in
// record mode and when the session captured at least one call.
func (i *Interceptor) SaveRecordings() error {
	if i.config.Mode != ModeRecord {
		return nil
	}
	session := i.Session()
	if session == nil {
		return ErrNoTestContext
	}

	records := session.Records()
	if len(records) == 0 {
		i.logger.Debugf("[INTERCEPTOR] Nothing recorded for %s, not writing a file", session.TestContext())
		return nil
	}

	tc := session.TestContext()
	if err := i.store.Save(tc.SuiteName, tc.TestName, records, session.RunID()); err != nil {
		return fmt.Errorf("failed to save recordings for %s: %w", tc, err)
	}
	return nil
}

// GetResponseStats reports totals for the current session
func (i *Interceptor) GetResponseStats() ResponseStats {
	session := i.Session()
	if session == nil {
		return ResponseStats{}
	}
	return session.Stats()
}

type interceptorKey struct{}

// WithInterceptor returns a copy of ctx carrying i
func WithInterceptor(ctx context.Context, i *Interceptor) context.Context {
	return context.WithValue(ctx, interceptorKey{}, i)
}

// FromContext returns the interceptor stored in ctx, if any
func FromContext(ctx context.Context) (*Interceptor, bool) {
	i, ok := ctx.Value(interceptorKey{}).(*Interceptor)
	return i, ok && i != nil
}
