// Package frontend implements the line-oriented battle shell used by the
// terminal client.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/gotchi/internal/frontend/render"
)

// Caller invokes a battle service method. gameserver.Client implements it.
type Caller interface {
	Call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// Shell turns typed commands into battle service calls for one user.
type Shell struct {
	caller Caller
	user   string
}

// NewShell creates a Shell acting as user.
//
// Precondition: caller must be non-nil; user must be non-empty.
func NewShell(caller Caller, user string) *Shell {
	return &Shell{caller: caller, user: user}
}

// Help lists the commands Dispatch understands.
const Help = `commands:
  train                 battle a wild gotchi
  challenge <user>      challenge another player
  accept | decline      answer a pending challenge
  move <name|number>    pick a move for this turn
  status                show the current battle
  forfeit               leave the current battle
  history [n]           list your recent battles
  help                  show this list
  quit                  exit`

// ErrQuit is returned by Dispatch for the quit command.
var ErrQuit = errors.New("quit")

// Dispatch runs one command line and returns the text to show. Service
// errors are rendered as their status message rather than returned.
func (s *Shell) Dispatch(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		return "", ErrQuit
	case "help", "?":
		return Help + "\n", nil
	case "train":
		return s.call(ctx, "CreateSession", nil, render.Session)
	case "challenge":
		if len(args) != 1 {
			return usage("challenge <user>"), nil
		}
		return s.call(ctx, "CreateSession", map[string]any{"opponent_id": args[0]}, render.Session)
	case "accept":
		return s.call(ctx, "AcceptChallenge", nil, render.Session)
	case "decline":
		return s.call(ctx, "DeclineChallenge", nil, func(*structpb.Struct) string {
			return "Challenge declined.\n"
		})
	case "move", "use":
		if len(args) == 0 {
			return usage("move <name|number>"), nil
		}
		return s.call(ctx, "SubmitMove", map[string]any{"move": strings.Join(args, " ")}, render.Turn)
	case "status":
		return s.call(ctx, "GetSession", nil, render.Session)
	case "forfeit":
		return s.call(ctx, "Deregister", nil, func(*structpb.Struct) string {
			return "You left the battle.\n"
		})
	case "history":
		req := map[string]any{}
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return usage("history [n]"), nil
			}
			req["limit"] = n
		}
		return s.call(ctx, "History", req, render.History)
	}
	return fmt.Sprintf("unknown command %q; type help for a list\n", cmd), nil
}

func (s *Shell) call(ctx context.Context, method string, req map[string]any, show func(*structpb.Struct) string) (string, error) {
	if req == nil {
		req = map[string]any{}
	}
	req["user_id"] = s.user
	out, err := s.caller.Call(ctx, method, req)
	if err != nil {
		if st, ok := status.FromError(err); ok {
			return render.Colorize(render.Red, st.Message()) + "\n", nil
		}
		return "", err
	}
	return show(out), nil
}

func usage(u string) string {
	return "usage: " + u + "\n"
}
