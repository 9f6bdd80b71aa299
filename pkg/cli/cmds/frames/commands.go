package frames

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/ledchain/pkg/cli/sh"
	"github.com/robotalks/ledchain/pkg/frame"
)

// ParseColors parses a color per node.
func ParseColors(args []string) ([]frame.Color, error) {
	colors := make([]frame.Color, 0, len(args))
	for _, arg := range args {
		c, err := frame.ParseColor(arg)
		if err != nil {
			return nil, err
		}
		colors = append(colors, c)
	}
	return colors, nil
}

// ParseBytes parses hex bytes like 0d, 0x0d or a run like 070041.
func ParseBytes(args []string) ([]byte, error) {
	var data []byte
	for _, arg := range args {
		str := strings.TrimPrefix(strings.ToLower(arg), "0x")
		if str == "" || len(str)%2 != 0 {
			return nil, fmt.Errorf("invalid bytes %q", arg)
		}
		for i := 0; i < len(str); i += 2 {
			val, err := strconv.ParseUint(str[i:i+2], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid bytes %q", arg)
			}
			data = append(data, byte(val))
		}
	}
	return data, nil
}

// Repeat creates colors for n nodes.
func Repeat(n int, c frame.Color) ([]frame.Color, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid number of nodes %d", n)
	}
	colors := make([]frame.Color, n)
	for i := range colors {
		colors[i] = c
	}
	return colors, nil
}

// DescribeFrame decodes a frame for the given number of nodes into
// "node0=#rrggbb ... extra=xx xx".
func DescribeFrame(data []byte, nodes int) (string, error) {
	colors, extra, err := frame.Decode(data, nodes)
	if err != nil {
		return "", err
	}
	items := make([]string, 0, len(colors)+1)
	for n, color := range colors {
		items = append(items, fmt.Sprintf("node%d=%v", n, color))
	}
	if len(extra) > 0 {
		items = append(items, fmt.Sprintf("extra=% x", extra))
	}
	return strings.Join(items, " "), nil
}

func sendColors(c *ishell.Context, colors []frame.Color) {
	data, err := frame.Encode(colors, nil)
	if err != nil {
		c.Err(err)
		return
	}
	sh.Send(c, data)
}

func parseCount(c *ishell.Context) (int, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("N required"))
		return 0, false
	}
	n, err := strconv.Atoi(c.Args[0])
	if err != nil {
		c.Err(fmt.Errorf("Invalid N: %v", err))
		return 0, false
	}
	return n, true
}

var (
	// ColorCmd sets a color per node.
	ColorCmd = ishell.Cmd{
		Name:    "color",
		Aliases: []string{"co"},
		Help:    "COLOR... (#rrggbb or r,g,b, one per node)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("COLOR required"))
				return
			}
			colors, err := ParseColors(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sendColors(c, colors)
		}),
	}

	// ChainCmd sets the same color on N nodes.
	ChainCmd = ishell.Cmd{
		Name:    "chain",
		Aliases: []string{"ch"},
		Help:    "N COLOR",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			n, ok := parseCount(c)
			if !ok {
				return
			}
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("COLOR required"))
				return
			}
			color, err := frame.ParseColor(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			colors, err := Repeat(n, color)
			if err != nil {
				c.Err(err)
				return
			}
			sendColors(c, colors)
		}),
	}

	// OffCmd turns off N nodes.
	OffCmd = ishell.Cmd{
		Name: "off",
		Help: "N",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			n, ok := parseCount(c)
			if !ok {
				return
			}
			colors, err := Repeat(n, frame.Color{})
			if err != nil {
				c.Err(err)
				return
			}
			sendColors(c, colors)
		}),
	}

	// RawCmd writes bytes as is.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "HEX...",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			data, err := ParseBytes(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if len(data) == 0 {
				c.Err(fmt.Errorf("HEX required"))
				return
			}
			sh.Send(c, data)
		}),
	}

	// DecodeCmd shows what each of N nodes gets from a frame.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"de"},
		Help:    "N HEX...",
		Func: func(c *ishell.Context) {
			n, ok := parseCount(c)
			if !ok {
				return
			}
			data, err := ParseBytes(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			desc, err := DescribeFrame(data, n)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(desc)
		},
	}
)

func init() {
	sh.AddCmds(
		&ColorCmd,
		&ChainCmd,
		&OffCmd,
		&RawCmd,
		&DecodeCmd,
	)
}
