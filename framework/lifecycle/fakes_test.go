package lifecycle

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/chainforge/devnode/framework/types"
)

type fakeProber struct {
	// statuses are returned in order, the last one repeats.
	statuses []types.ContainerStatus
	err      error
	calls    int
}

func (p *fakeProber) Probe(_ context.Context, imagePrefix string) (types.ContainerStatus, error) {
	p.calls++
	if p.err != nil {
		return types.ContainerStatus{}, p.err
	}
	if len(p.statuses) == 0 {
		return types.ContainerStatus{ImageName: imagePrefix}, nil
	}
	i := p.calls - 1
	if i >= len(p.statuses) {
		i = len(p.statuses) - 1
	}
	s := p.statuses[i]
	s.ImageName = imagePrefix
	return s, nil
}

type fakeGroup struct {
	lines  chan types.OutputLine
	result types.SpawnResult
	err    error
	waited int
}

func newFakeGroup(lines ...types.OutputLine) *fakeGroup {
	ch := make(chan types.OutputLine, len(lines))
	for _, l := range lines {
		ch <- l
	}
	close(ch)
	return &fakeGroup{lines: ch}
}

func (g *fakeGroup) Output() <-chan types.OutputLine {
	return g.lines
}

func (g *fakeGroup) Wait(context.Context) (types.SpawnResult, error) {
	g.waited++
	return g.result, g.err
}

type launcherCall struct {
	verb  string
	files []string
}

type fakeLauncher struct {
	// groups are handed out by StartGroup in order.
	groups   []*fakeGroup
	startErr error
	stopErr  error
	calls    []launcherCall
}

func (l *fakeLauncher) StartGroup(_ context.Context, composeFiles ...string) (types.ProcessGroup, error) {
	l.calls = append(l.calls, launcherCall{verb: "start", files: composeFiles})
	if l.startErr != nil {
		return nil, l.startErr
	}
	if len(l.groups) == 0 {
		return newFakeGroup(), nil
	}
	g := l.groups[0]
	l.groups = l.groups[1:]
	return g, nil
}

func (l *fakeLauncher) StopGroup(_ context.Context, composeFiles ...string) (types.SpawnResult, error) {
	l.calls = append(l.calls, launcherCall{verb: "stop", files: composeFiles})
	if l.stopErr != nil {
		return types.SpawnResult{ExitOccurred: true, ExitCode: 1, Stderr: l.stopErr.Error()}, l.stopErr
	}
	return types.SpawnResult{ExitOccurred: true}, nil
}

func (l *fakeLauncher) count(verb string) int {
	n := 0
	for _, c := range l.calls {
		if c.verb == verb {
			n++
		}
	}
	return n
}

type fakeValidator struct {
	err error
}

func (v fakeValidator) Validate() error {
	return v.err
}

type fakeFunder struct {
	balances []types.WalletBalance
	err      error
	calls    int
}

func (f *fakeFunder) Fund(context.Context) ([]types.WalletBalance, error) {
	f.calls++
	return f.balances, f.err
}

type fakeJanitor struct {
	removeErr error
	dumps     int
	removes   int
}

func (j *fakeJanitor) DumpLogs(context.Context) error {
	j.dumps++
	return nil
}

func (j *fakeJanitor) RemoveProject(context.Context) error {
	j.removes++
	return j.removeErr
}

type recordingReporter struct {
	steps     []string
	successes []string
	progress  int
	output    []types.OutputLine
	errs      []error
}

func (r *recordingReporter) Step(msg string) {
	r.steps = append(r.steps, msg)
}

func (r *recordingReporter) Success(msg string) {
	r.successes = append(r.successes, msg)
}

func (r *recordingReporter) Progress() {
	r.progress++
}

func (r *recordingReporter) Output(line types.OutputLine) {
	r.output = append(r.output, line)
}

func (r *recordingReporter) Wallet(string, types.KeyPair, *big.Int) {}

func (r *recordingReporter) Error(err error) {
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) said(substr string) bool {
	for _, m := range append(append([]string{}, r.steps...), r.successes...) {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

var errRuntimeDown = errors.New("cannot connect to the docker daemon")
