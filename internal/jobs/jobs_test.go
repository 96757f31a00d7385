package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubSweeper struct {
	removed     int
	err         error
	calls       int
	hadDeadline bool
}

func (s *stubSweeper) Sweep(ctx context.Context) (int, error) {
	s.calls++
	_, s.hadDeadline = ctx.Deadline()
	return s.removed, s.err
}

func TestRunner_OTPSweepJob(t *testing.T) {
	g := NewWithT(t)
	core, logs := observer.New(zapcore.DebugLevel)
	sweeper := &stubSweeper{removed: 4}

	newRunner(zap.New(core)).Run(context.Background(), NewOTPSweepJob(sweeper))

	g.Expect(sweeper.calls).To(Equal(1))
	g.Expect(sweeper.hadDeadline).To(BeTrue())
	swept := logs.FilterMessage("swept stale recovery codes").All()
	g.Expect(swept).To(HaveLen(1))
	g.Expect(swept[0].ContextMap()).To(HaveKeyWithValue("removed", int64(4)))
	g.Expect(swept[0].ContextMap()).To(HaveKeyWithValue("job", "otp-sweep"))
}

func TestRunner_LogsFailure(t *testing.T) {
	g := NewWithT(t)
	core, logs := observer.New(zapcore.DebugLevel)
	sweeper := &stubSweeper{err: errors.New("context canceled")}

	newRunner(zap.New(core)).Run(context.Background(), NewOTPSweepJob(sweeper))

	g.Expect(logs.FilterMessage("job failed").Len()).To(Equal(1))
	g.Expect(logs.FilterMessage("swept stale recovery codes").Len()).To(BeZero())
}

func TestScheduler_RegisterCronJob(t *testing.T) {
	g := NewWithT(t)
	scheduler, err := NewScheduler(zap.NewNop())
	g.Expect(err).NotTo(HaveOccurred())
	defer func() { _ = scheduler.Shutdown() }()

	job := NewJob("noop", func(context.Context, *zap.Logger) error { return nil }, time.Second)
	g.Expect(scheduler.RegisterCronJob("*/5 * * * *", job)).To(Succeed())
	g.Expect(scheduler.RegisterCronJob("not a cron", job)).NotTo(Succeed())
}
