package sh

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ledchain/pkg/transport"
)

// Shell provides ishell backed interactive shell writing frames to the
// upstream end of a chain.
type Shell struct {
	Interactive bool
	// Linger is how long to wait for downstream output before exit in
	// non-interactive mode.
	Linger time.Duration
	Baud   int

	Shell *ishell.Shell

	portLock sync.Mutex
	portURL  string
	port     io.ReadWriteCloser
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly bool
	linger   = 200 * time.Millisecond
	portURL  string
	baud     = transport.DefaultBaud

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	if val := os.Getenv("LEDCHAIN_PORT"); val != "" {
		portURL = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.DurationVar(&linger, "linger", linger, "Time to print downstream output before exit with -e.")
	flag.StringVar(&portURL, "port", portURL, "Upstream serial channel URL of the chain.")
	flag.IntVar(&baud, "baud", baud, "Serial baud rate.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Linger:      linger,
		Baud:        baud,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if !ShellFrom(c).Connected() {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Send writes a frame to the chain. A write error is reported through c.
func Send(c *ishell.Context, data []byte) {
	if err := ShellFrom(c).Write(data); err != nil {
		c.Err(err)
		return
	}
	c.Printf(">> % x\n", data)
}

// Connected tells whether a port is open.
func (s *Shell) Connected() bool {
	s.portLock.Lock()
	defer s.portLock.Unlock()
	return s.port != nil
}

// Connect opens the port with url and prints what comes back from the
// downstream end.
func (s *Shell) Connect(url string) error {
	port, err := transport.Open(url, s.Baud)
	if err != nil {
		return err
	}
	s.Attach(url, port)
	return nil
}

// Attach uses an opened port.
func (s *Shell) Attach(url string, port io.ReadWriteCloser) {
	s.Disconnect()
	s.portLock.Lock()
	s.portURL, s.port = url, port
	s.portLock.Unlock()
	go s.readLoop(port)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", url))
}

func (s *Shell) readLoop(port io.Reader) {
	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			s.Shell.Printf("<< % x\n", buf[:n])
		}
		if err != nil {
			s.portLock.Lock()
			if s.port == port {
				s.Shell.Printf("%s: %v\n", s.portURL, err)
			}
			s.portLock.Unlock()
			return
		}
	}
}

// Write writes data to the port.
func (s *Shell) Write(data []byte) error {
	s.portLock.Lock()
	port := s.port
	s.portLock.Unlock()
	if port == nil {
		return fmt.Errorf("not connected")
	}
	_, err := port.Write(data)
	return err
}

// Disconnect closes current port.
func (s *Shell) Disconnect() {
	s.portLock.Lock()
	port := s.port
	s.port, s.portURL = nil, ""
	s.portLock.Unlock()
	if port != nil {
		port.Close()
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(url string, args ...string) {
	if url != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", url)
		}
		if err := s.Connect(url); err != nil {
			log.Fatalf("connect %q failed: %v", url, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		time.Sleep(s.Linger)
		s.Disconnect()
		return
	}
	if s.Interactive {
		s.Shell.Run()
		s.Disconnect()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd opens a port.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "URL",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("URL required"))
				return
			}
			if err := ShellFrom(c).Connect(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes current port.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New().Run(portURL, flag.Args()...)
}
