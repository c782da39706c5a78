package provider

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/Iron-Ham/homeclock/internal/clock"
	"github.com/Iron-Ham/homeclock/internal/logging"
)

// DefaultGracefulStopTimeout is how long a provider process may take to exit
// after SIGTERM before it is killed.
const DefaultGracefulStopTimeout = 500 * time.Millisecond

// process is one provider process started by the Launcher.
type process struct {
	id      clock.ProviderID
	content string
	cmd     *exec.Cmd
	exited  chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// Launcher runs provider processes as "command... <provider-id> <content>".
// A provider keeps one process; launching it again with the same content
// reuses the running process.
type Launcher struct {
	command     []string
	stopTimeout time.Duration
	logger      *logging.Logger
	mu          sync.Mutex
	byPID       map[int]*process
	byID        map[clock.ProviderID]*process
}

// NewLauncher creates a launcher for the given command line.
func NewLauncher(command []string, logger *logging.Logger) (*Launcher, error) {
	if len(command) == 0 {
		return nil, errors.New("launch command is empty")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Launcher{
		command:     append([]string(nil), command...),
		stopTimeout: DefaultGracefulStopTimeout,
		logger:      logger.WithComponent("launcher"),
		byPID:       make(map[int]*process),
		byID:        make(map[clock.ProviderID]*process),
	}, nil
}

// Launch starts the provider for id, or returns the pid of its running
// process when the content is unchanged.
func (l *Launcher) Launch(id clock.ProviderID, content string) (int, error) {
	l.mu.Lock()
	prev := l.byID[id]
	l.mu.Unlock()

	if prev != nil && !prev.done() {
		if prev.content == content {
			return prev.cmd.Process.Pid, nil
		}
		if err := l.Terminate(prev.cmd.Process.Pid); err != nil {
			l.logger.Warn("failed to stop provider before relaunch", "provider_id", id.String(), "error", err)
		}
	}

	args := append(append([]string(nil), l.command[1:]...), id.String(), content)
	cmd := exec.Command(l.command[0], args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to launch provider %s: %w", id, err)
	}

	p := &process{id: id, content: content, cmd: cmd, exited: make(chan struct{}), stop: make(chan struct{})}
	pid := cmd.Process.Pid
	l.mu.Lock()
	l.byPID[pid] = p
	l.byID[id] = p
	l.mu.Unlock()

	go l.reap(p)
	l.logger.Info("provider launched", "provider_id", id.String(), "pid", pid)
	return pid, nil
}

// reap waits for the process so it never lingers as a zombie. Once a stop
// is requested it kills the process if it outlives the graceful timeout.
func (l *Launcher) reap(p *process) {
	waited := make(chan error, 1)
	go func() { waited <- p.cmd.Wait() }()

	var err error
	select {
	case err = <-waited:
	case <-p.stop:
		timer := time.NewTimer(l.stopTimeout)
		select {
		case err = <-waited:
		case <-timer.C:
			if kerr := p.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
				l.logger.Warn("failed to kill provider", "provider_id", p.id.String(), "error", kerr)
			}
			err = <-waited
		}
		timer.Stop()
	}
	close(p.exited)

	l.mu.Lock()
	pid := p.cmd.Process.Pid
	if l.byPID[pid] == p {
		delete(l.byPID, pid)
	}
	if l.byID[p.id] == p {
		delete(l.byID, p.id)
	}
	l.mu.Unlock()

	l.logger.Debug("provider exited", "provider_id", p.id.String(), "pid", pid, "error", err)
}

// Terminate sends SIGTERM to a launched process and returns without waiting.
// The process is killed if it is still running after the graceful timeout.
// Unknown pids are ignored.
func (l *Launcher) Terminate(pid int) error {
	l.mu.Lock()
	p := l.byPID[pid]
	l.mu.Unlock()
	if p == nil || p.done() {
		return nil
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to signal provider %d: %w", pid, err)
	}
	p.stopOnce.Do(func() { close(p.stop) })
	return nil
}

// Running returns the pid of id's live process, or 0.
func (l *Launcher) Running(id clock.ProviderID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p := l.byID[id]; p != nil && !p.done() {
		return p.cmd.Process.Pid
	}
	return 0
}

// StopAll terminates every live provider process and waits for them to exit.
func (l *Launcher) StopAll() {
	l.mu.Lock()
	procs := make([]*process, 0, len(l.byPID))
	for _, p := range l.byPID {
		procs = append(procs, p)
	}
	l.mu.Unlock()

	for _, p := range procs {
		if err := l.Terminate(p.cmd.Process.Pid); err != nil {
			l.logger.Warn("failed to stop provider", "pid", p.cmd.Process.Pid, "error", err)
		}
	}
	for _, p := range procs {
		<-p.exited
	}
}

func (p *process) done() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}
