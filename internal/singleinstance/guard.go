// Package singleinstance enforces one running instance per user. The
// first instance binds a local rendezvous endpoint and writes a PID
// file; later launches notify it and exit. A leftover endpoint whose
// recorded owner is no longer alive is stale and gets replaced.
package singleinstance

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cloudtree/cloudtree/internal/constants"
	"github.com/cloudtree/cloudtree/internal/events"
	"github.com/cloudtree/cloudtree/internal/logging"
)

// ErrAlreadyRunning reports that another live instance owns the guard.
var ErrAlreadyRunning = errors.New("another cloudtree instance is already running")

const activateRequest = "activate"

// Guard holds the rendezvous endpoint for the primary instance.
type Guard struct {
	listener net.Listener
	endpoint string
	pidPath  string
	bus      *events.EventBus
	logger   *logging.Logger

	wg          sync.WaitGroup
	releaseOnce sync.Once
}

// Acquire attempts to become the primary instance for the given config
// directory. If a live instance already owns the endpoint it is asked
// to activate and ErrAlreadyRunning is returned. Stale leftovers from
// a dead owner are removed before binding.
func Acquire(dir string, bus *events.EventBus, logger *logging.Logger) (*Guard, error) {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	endpoint := endpointName(dir)
	pidPath := filepath.Join(dir, "cloudtree.pid")

	if conn, err := dialEndpoint(endpoint, constants.RendezvousConnectTimeout); err == nil {
		conn.SetWriteDeadline(time.Now().Add(constants.RendezvousWriteTimeout))
		_, _ = conn.Write([]byte(activateRequest + "\n"))
		conn.Close()
		return nil, ErrAlreadyRunning
	}

	// The endpoint did not answer. If its recorded owner is still
	// alive it may just be starting up; defer to it either way.
	if pid := readPID(pidPath); pid > 0 && isProcessAlive(pid) {
		return nil, ErrAlreadyRunning
	}

	cleanupEndpoint(endpoint)
	os.Remove(pidPath)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	listener, err := listenEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to bind instance endpoint: %w", err)
	}
	if err := writePID(pidPath); err != nil {
		listener.Close()
		cleanupEndpoint(endpoint)
		return nil, err
	}

	g := &Guard{
		listener: listener,
		endpoint: endpoint,
		pidPath:  pidPath,
		bus:      bus,
		logger:   logger,
	}
	g.wg.Add(1)
	go g.serve()

	logger.Debug().Str("endpoint", endpoint).Int("pid", os.Getpid()).Msg("instance guard acquired")
	return g, nil
}

// serve accepts rendezvous connections until Release closes the listener.
func (g *Guard) serve() {
	defer g.wg.Done()
	for {
		conn, err := g.listener.Accept()
		if err != nil {
			return
		}
		go g.handle(conn)
	}
}

func (g *Guard) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(constants.RendezvousWriteTimeout))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return
	}
	if strings.TrimSpace(line) != activateRequest {
		g.logger.Debug().Str("request", strings.TrimSpace(line)).Msg("unknown rendezvous request")
		return
	}
	if g.bus != nil {
		g.bus.Publish(&events.ActivateEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventActivate, Time: time.Now()},
		})
	}
}

// Release gives up primary ownership and removes the endpoint and PID
// file. Safe to call more than once.
func (g *Guard) Release() {
	g.releaseOnce.Do(func() {
		g.listener.Close()
		g.wg.Wait()
		cleanupEndpoint(g.endpoint)
		os.Remove(g.pidPath)
	})
}

func writePID(path string) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// readPID returns 0 when the file is missing or malformed.
func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
