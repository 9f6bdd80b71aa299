// Package transport opens the serial channels between ledchain nodes.
//
// A channel is addressed by URL:
//
//   serial:///dev/ttyUSB0?baud=9600   a serial port
//   /dev/ttyUSB0                      same as above
//   ws://host:port/path               a websocket, e.g. served by ledsim
//   tcp://host:port                   a raw TCP stream
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"

	"github.com/golang/glog"
	"github.com/tarm/serial"
	"golang.org/x/net/websocket"
)

// DefaultBaud is the baud rate of the MSP430 node firmware.
const DefaultBaud = 9600

var (
	// ErrNoAddress indicates an empty URL.
	ErrNoAddress = errors.New("no address")
)

// Open opens a channel from a URL. baud is used for serial ports unless the
// URL specifies one.
func Open(rawURL string, baud int) (io.ReadWriteCloser, error) {
	if rawURL == "" {
		return nil, ErrNoAddress
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %v", rawURL, err)
	}
	switch u.Scheme {
	case "", "serial":
		return openSerial(u, baud)
	case "ws", "wss":
		return dialWebsocket(u)
	case "tcp":
		glog.Infof("connecting %s", u.Host)
		return net.Dial("tcp", u.Host)
	}
	return nil, fmt.Errorf("unknown scheme %q", u.Scheme)
}

func openSerial(u *url.URL, baud int) (io.ReadWriteCloser, error) {
	if val := u.Query().Get("baud"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid baud %q: %v", val, err)
		}
		baud = n
	}
	if baud <= 0 {
		baud = DefaultBaud
	}
	name := u.Path
	if name == "" {
		name = u.Opaque
	}
	glog.Infof("opening serial port %s, %d baud", name, baud)
	return serial.OpenPort(&serial.Config{Name: name, Baud: baud})
}

func dialWebsocket(u *url.URL) (io.ReadWriteCloser, error) {
	origin := "http://" + u.Host + "/"
	if u.Scheme == "wss" {
		origin = "https://" + u.Host + "/"
	}
	glog.Infof("connecting %s", u.String())
	conn, err := websocket.Dial(u.String(), "", origin)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// WebsocketHandler serves each websocket connection as a channel.
func WebsocketHandler(serve func(io.ReadWriteCloser)) websocket.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		glog.V(2).Infof("websocket connected from %s", conn.Request().RemoteAddr)
		serve(conn)
	})
}
