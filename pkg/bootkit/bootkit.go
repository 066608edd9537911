package bootkit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo/mutable"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultStartTimeout = time.Second * 15
	DefaultStopTimeout  = time.Second * 60
)

// Runnable builds one component and registers its hooks on the life cycle.
type Runnable func(ctx context.Context, lifeCycle LifeCycle) error

type BootKit struct {
	options   *bootkitOptions
	runnables []Runnable
	lifeCycle *lifeCycle

	selfCtx    context.Context
	selfCancel context.CancelFunc

	mutex sync.Mutex
}

func New(options ...Option) *BootKit {
	applyOptions := &bootkitApplyOptions{
		bootkit: &bootkitOptions{
			startTimeout: DefaultStartTimeout,
			stopTimeout:  DefaultStopTimeout,
		},
	}

	for _, opt := range options {
		opt.apply(applyOptions)
	}

	selfCtx, selfCancel := context.WithCancel(context.Background())

	return &BootKit{
		options:    applyOptions.bootkit,
		runnables:  make([]Runnable, 0),
		lifeCycle:  newLifeCycle(),
		selfCtx:    selfCtx,
		selfCancel: selfCancel,
	}
}

func (b *BootKit) Add(invokeFn Runnable) *BootKit {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.runnables = append(b.runnables, invokeFn)

	return b
}

func waitOrContextDone(ctx context.Context, wait func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func callRunnables(ctx context.Context, runnables []Runnable, lifeCycle LifeCycle) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, r := range runnables {
		group.Go(func() error {
			return r(groupCtx, lifeCycle)
		})
	}

	return waitOrContextDone(ctx, group.Wait)
}

// callStartHooks returns as soon as one hook fails, all hooks returned, or
// ctx is done.
func callStartHooks(ctx context.Context, hooks []lifeCycler) error {
	errChan := make(chan error, len(hooks))

	for _, hook := range hooks {
		go func() {
			errChan <- hook.Start(ctx)
		}()
	}

	for range hooks {
		select {
		case err := <-errChan:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}

	return nil
}

func callStopHooks(ctx context.Context, hooks []lifeCycler) error {
	reversed := slices.Clone(hooks)
	mutable.Reverse(reversed)

	mulErrs := &multierror.Error{}

	for _, hook := range reversed {
		err := waitOrContextDone(ctx, func() error { return hook.Stop(ctx) })
		if err != nil {
			mulErrs = multierror.Append(mulErrs, err)
		}

		if ctx.Err() != nil {
			break
		}
	}

	return mulErrs.ErrorOrNil()
}

func (b *BootKit) watchSignals() {
	sigs := make(chan os.Signal, 2) //nolint:mnd
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(sigs)

	select {
	case <-sigs:
		slog.Info("received signal, shutting down")
		b.selfCancel()
	case <-b.selfCtx.Done():
		return
	}

	// Double signal will force exit
	<-sigs
	fmt.Fprintln(os.Stderr, "received signal, force terminated")
	os.Exit(1)
}

// Start runs every runnable, then every start hook, and blocks until a hook
// fails, all hooks returned, or the process is asked to stop. Stop hooks run
// before Start returns.
func (b *BootKit) Start() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	startCtx, cancel := context.WithTimeout(b.selfCtx, b.options.startTimeout)
	defer cancel()

	err := callRunnables(startCtx, b.runnables, b.lifeCycle)
	if err != nil {
		b.mayStop()

		return fmt.Errorf("failed to run: %w", err)
	}

	go b.watchSignals()

	defer b.selfCancel()
	defer b.mayStop()

	err = callStartHooks(b.selfCtx, b.lifeCycle.GetHooks())
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	return nil
}

func (b *BootKit) stop() error {
	hooks := b.lifeCycle.GetHooks()
	if len(hooks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.options.stopTimeout)
	defer cancel()

	return callStopHooks(ctx, hooks)
}

func (b *BootKit) mayStop() {
	err := b.stop()
	if err != nil {
		slog.Error("failed to stop", "error", err)
	}
}

// Stop asks a running Start to return. Start runs the stop hooks itself.
func (b *BootKit) Stop() {
	b.selfCancel()
}
