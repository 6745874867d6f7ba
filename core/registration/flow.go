// Package registration drives the check-in / registration / blocked / redirect
// journey for one student visit against a fixed session. A Flow is an explicit
// state machine: UI layers drive it through its mutators and render whatever
// Snapshot reports. State transitions are atomic with respect to one logical
// event, and a response arriving after the user has left a step is dropped.
package registration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/student"
)

type State string

const (
	StateCheckIn     State = "check-in" // initial
	StateRegistering State = "registering"
	StateWelcomeBack State = "welcome-back"
	StateBlocked     State = "blocked"
	StateSuccess     State = "success"
	StateRedirecting State = "redirecting"
)

var (
	// errors
	ErrInvalidTransition = errors.New("action not available in the current step")
	ErrPhoneRequired     = errors.New("a valid phone number is required")
)

type (
	Flow struct {
		session  string
		students *student.Service
		meetings *meeting.Service
		logger   core.Logger

		welcomeCountdown time.Duration
		redirectDelay    time.Duration
		tickEvery        time.Duration // one countdown second; shortened in tests
		navigate         func(url string) // external navigation; must not call back into the Flow

		mu          sync.Mutex
		state       State
		phone       string
		record      *student.Student
		countdown   int // seconds left in welcome-back
		redirectURL string
		navigated   bool

		// epoch invalidates in-flight responses and pending timers whenever
		// the user abandons the current step.
		epoch      int
		redirected bool // the redirect sub-flow ran for this visit
		stopTick   chan struct{}
		redirTimer *time.Timer
	}

	// Snapshot is a consistent view of the Flow for rendering.
	Snapshot struct {
		Session     string           `json:"session"`
		State       State            `json:"state"`
		Phone       string           `json:"phone,omitempty"`
		Countdown   int              `json:"countdown,omitempty"`
		RedirectURL string           `json:"redirectUrl,omitempty"`
		Navigated   bool             `json:"navigated,omitempty"`
		Record      *student.Student `json:"record,omitempty"`
	}
)

func NewFlow(
	session string,
	students *student.Service,
	meetings *meeting.Service,
	logger core.Logger,
	conf *core.Config,
) (*Flow, error) {
	if !student.ValidSession(session) {
		return nil, student.ErrInvalidSession
	}
	return &Flow{
		session:          session,
		students:         students,
		meetings:         meetings,
		logger:           logger,
		welcomeCountdown: conf.Portal.WelcomeCountdown,
		redirectDelay:    conf.Portal.RedirectDelay,
		tickEvery:        time.Second,
		navigate:         func(string) {},
	}, nil
}

// OnNavigate sets the callback invoked when the redirect delay elapses.
func (f *Flow) OnNavigate(fn func(url string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigate = fn
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{
		Session:     f.session,
		State:       f.stateLocked(),
		Phone:       f.phone,
		Countdown:   f.countdown,
		RedirectURL: f.redirectURL,
		Navigated:   f.navigated,
		Record:      f.record,
	}
}

func (f *Flow) stateLocked() State {
	if f.state == "" {
		return StateCheckIn
	}
	return f.state
}

// CheckIn submits a canonical phone number and branches on what the store
// holds: no record moves to Registering, a live record to WelcomeBack (with
// its auto-join countdown), a blocked record to Blocked. A store failure
// leaves the flow in CheckIn; nothing is retried without the user
// resubmitting.
func (f *Flow) CheckIn(ctx context.Context, fullPhone string) error {
	f.mu.Lock()
	if f.stateLocked() != StateCheckIn {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	if fullPhone == "" {
		f.mu.Unlock()
		return core.NewValidationError(ErrPhoneRequired,
			core.FieldError{Field: "phoneNumber", Error: ErrPhoneRequired.Error()})
	}
	epoch := f.epoch
	f.mu.Unlock()

	std, found, err := f.students.CheckIn(ctx, f.session, fullPhone)

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch {
		return nil // user left this step; drop the late response
	}
	if err != nil {
		return errors.Wrap(err, "checking registration")
	}

	f.phone = fullPhone
	switch {
	case !found:
		f.state = StateRegistering
	case std.Blocked:
		f.record = &std
		f.state = StateBlocked
	default:
		f.record = &std
		f.state = StateWelcomeBack
		f.startCountdownLocked()
	}
	return nil
}

// Register submits the registration form. Validation failures never reach the
// store. On success the flow reaches Success and immediately proceeds to the
// redirect sub-flow.
func (f *Flow) Register(ctx context.Context, reg student.Registration) error {
	f.mu.Lock()
	if f.stateLocked() != StateRegistering {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	phone := f.phone
	epoch := f.epoch
	f.mu.Unlock()

	if err := reg.Validate(); err != nil {
		return err
	}

	std, err := f.students.Register(ctx, f.session, phone, reg)

	f.mu.Lock()
	if epoch != f.epoch {
		f.mu.Unlock()
		return nil
	}
	if err != nil {
		f.mu.Unlock()
		return errors.Wrap(err, "registering")
	}
	f.record = &std
	f.state = StateSuccess
	f.mu.Unlock()

	return f.redirect(ctx)
}

// JoinNow cancels the welcome-back countdown and redirects immediately.
func (f *Flow) JoinNow(ctx context.Context) error {
	f.mu.Lock()
	if f.stateLocked() != StateWelcomeBack {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	f.stopCountdownLocked()
	f.mu.Unlock()

	return f.redirect(ctx)
}

// SubmitReceipt resubmits a payment receipt from the Blocked screen. On
// success the flow stays Blocked but the record now carries the pending
// receipt for rendering.
func (f *Flow) SubmitReceipt(ctx context.Context, message string) error {
	f.mu.Lock()
	if f.stateLocked() != StateBlocked {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	phone := f.phone
	epoch := f.epoch
	f.mu.Unlock()

	std, err := f.students.SubmitReceipt(ctx, f.session, phone, message)

	f.mu.Lock()
	defer f.mu.Unlock()
	if epoch != f.epoch {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "submitting receipt")
	}
	f.record = &std
	return nil
}

// UseDifferentNumber abandons the current step and returns to CheckIn,
// discarding everything entered so far. Any in-flight store response or
// pending timer for the abandoned step is invalidated.
func (f *Flow) UseDifferentNumber() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

// Close tears the flow down; no timer may fire afterwards.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

func (f *Flow) resetLocked() {
	f.epoch++
	f.stopCountdownLocked()
	if f.redirTimer != nil {
		f.redirTimer.Stop()
		f.redirTimer = nil
	}
	f.state = StateCheckIn
	f.phone = ""
	f.record = nil
	f.countdown = 0
	f.redirectURL = ""
	f.navigated = false
	f.redirected = false
}

// redirect runs the redirect sub-flow: resolve the session's vetted meeting
// URL, enter Redirecting and navigate after the fixed delay. A missing or
// invalid link halts the flow where it stands; the caller surfaces the
// "contact your teacher" notice. Runs at most once per visit.
func (f *Flow) redirect(ctx context.Context) error {
	f.mu.Lock()
	if f.redirected {
		f.mu.Unlock()
		return nil
	}
	epoch := f.epoch
	f.mu.Unlock()

	link, err := f.meetings.JoinURL(ctx, f.session)

	f.mu.Lock()
	defer f.mu.Unlock()
	// recheck under the lock: another entry (a second join-now, or join-now
	// racing the countdown expiry) may have won while the link was fetched
	if epoch != f.epoch || f.redirected {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "resolving meeting link")
	}

	f.redirected = true
	f.redirectURL = link
	f.state = StateRedirecting
	f.redirTimer = time.AfterFunc(f.redirectDelay, func() {
		f.mu.Lock()
		if epoch != f.epoch {
			f.mu.Unlock()
			return
		}
		f.navigated = true
		navigate := f.navigate
		f.mu.Unlock()
		navigate(link)
	})
	return nil
}

// startCountdownLocked arms the welcome-back auto-join countdown, decremented
// once per second. Expiry triggers the redirect sub-flow exactly once.
func (f *Flow) startCountdownLocked() {
	f.countdown = int(f.welcomeCountdown / time.Second)
	if f.countdown <= 0 {
		f.countdown = 0
		go f.autoJoin(f.epoch)
		return
	}

	stop := make(chan struct{})
	f.stopTick = stop
	epoch := f.epoch

	go func() {
		tick := time.NewTicker(f.tickEvery)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				f.mu.Lock()
				if epoch != f.epoch {
					f.mu.Unlock()
					return
				}
				f.countdown--
				done := f.countdown <= 0
				if done {
					f.stopCountdownLocked()
				}
				f.mu.Unlock()
				if done {
					f.autoJoin(epoch)
					return
				}
			}
		}
	}()
}

func (f *Flow) stopCountdownLocked() {
	if f.stopTick != nil {
		close(f.stopTick)
		f.stopTick = nil
	}
}

// autoJoin is the countdown-expiry redirect. There is no caller to hand an
// error back to, so failures are logged and the flow stays on WelcomeBack for
// the user to retry via join-now.
func (f *Flow) autoJoin(epoch int) {
	f.mu.Lock()
	if epoch != f.epoch {
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	if err := f.redirect(context.Background()); err != nil {
		f.logger.Warn(fmt.Sprintf("auto-join for session %q", f.session), err)
	}
}
