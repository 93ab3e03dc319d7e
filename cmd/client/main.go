// Command client is a simple interactive test client for the game server.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jessevdk/go-flags"

	"github.com/LemmyAI/ideaparty/internal/protocol"
)

type Options struct {
	Addr    string `long:"addr" default:"localhost:3001" description:"server address"`
	Name    string `long:"name" short:"n" default:"TestPlayer" description:"player name"`
	Session string `long:"session" description:"session token from an earlier run"`
	Codec   string `long:"codec" default:"json" choice:"json" choice:"proto" description:"wire codec"`
}

// session tracks what the server has told us.
type session struct {
	mu    sync.Mutex
	name  string
	token string
	room  string
}

func (s *session) setRoom(code string) {
	s.mu.Lock()
	s.room = code
	s.mu.Unlock()
}

func (s *session) currentRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

var errUsage = errors.New("usage: create [borda|ranked_pairs] | join CODE | leave | list | start | ideas a, b | rank a, b | quit")

// parseCommand turns one input line into an outbound event.
func parseCommand(line string, s *session) (protocol.Envelope, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	room := s.currentRoom()

	switch verb {
	case "create":
		return protocol.NewEnvelope(protocol.EventCreateRoom, protocol.CreateRoom{Username: s.name, Algorithm: rest})
	case "join":
		if rest == "" {
			return protocol.Envelope{}, errUsage
		}
		return protocol.NewEnvelope(protocol.EventJoinRoom, protocol.JoinRoom{RoomCode: rest, Username: s.name})
	case "leave":
		return protocol.NewEnvelope(protocol.EventLeaveRoom, protocol.RoomRef{RoomCode: room})
	case "list":
		return protocol.NewEnvelope(protocol.EventGetPlayerList, protocol.RoomRef{RoomCode: room})
	case "start":
		return protocol.NewEnvelope(protocol.EventStartWriting, protocol.RoomRef{RoomCode: room})
	case "ideas":
		return protocol.NewEnvelope(protocol.EventSubmitIdeas, protocol.SubmitIdeas{RoomCode: room, Ideas: splitList(rest)})
	case "rank":
		return protocol.NewEnvelope(protocol.EventSubmitRank, protocol.SubmitRank{RoomCode: room, Ordering: splitList(rest)})
	default:
		return protocol.Envelope{}, errUsage
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// describe renders a server event for the terminal and records room and
// session changes.
func describe(env protocol.Envelope, s *session) string {
	switch env.Event {
	case protocol.EventSession:
		var p protocol.Session
		if env.Bind(&p) == nil {
			s.mu.Lock()
			s.token = p.SessionToken
			s.mu.Unlock()
			return fmt.Sprintf("🔑 Session %s (reconnect with --session %s)", p.SessionToken, p.SessionToken)
		}
	case protocol.EventRoomCreated, protocol.EventSendToRoom:
		var p protocol.RoomRef
		if env.Bind(&p) == nil {
			s.setRoom(p.RoomCode)
			return fmt.Sprintf("🏠 In room %s", p.RoomCode)
		}
	case protocol.EventUpdatePlayerList:
		var names []string
		if env.Bind(&names) == nil {
			return fmt.Sprintf("👥 Players: %s", strings.Join(names, ", "))
		}
	case protocol.EventUpdateTimer:
		var p protocol.Timer
		if env.Bind(&p) == nil {
			return fmt.Sprintf("⏳ %ds", p.SecondsRemaining)
		}
	case protocol.EventOpenRankScreen:
		var p protocol.RankScreen
		if env.Bind(&p) == nil {
			return fmt.Sprintf("🗳️  Rank these: %s", strings.Join(p.Ideas, ", "))
		}
	case protocol.EventOpenResultsScreen:
		var p protocol.ResultsScreen
		if env.Bind(&p) == nil {
			return fmt.Sprintf("🏆 Ranks %v, points %v", p.RankDict, p.PointsDict)
		}
	case protocol.EventFailToCreateRoom, protocol.EventFailToJoinRoom,
		protocol.EventFailToStartWriting, protocol.EventFailToSubmit:
		var p protocol.Failure
		if env.Bind(&p) == nil {
			return fmt.Sprintf("❌ %s: %s", env.Event, p.Message)
		}
	}
	return fmt.Sprintf("📥 %s %s", env.Event, env.Data)
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	codec, err := protocol.CodecByName(opts.Codec)
	if err != nil {
		log.Fatalf("Codec: %v", err)
	}

	q := url.Values{}
	q.Set("codec", codec.Name())
	if opts.Session != "" {
		q.Set("session", opts.Session)
	}
	u := url.URL{Scheme: "ws", Host: opts.Addr, Path: "/ws", RawQuery: q.Encode()}

	log.Printf("🎮 Connecting to %s as %s...", u.String(), opts.Name)
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	s := &session{name: opts.Name, token: opts.Session}

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("Read error: %v", err)
				os.Exit(1)
			}
			env, err := codec.Decode(data)
			if err != nil {
				log.Printf("⚠️  Invalid message: %v", err)
				continue
			}
			log.Println(describe(env, s))
		}
	}()

	msgType := websocket.TextMessage
	if codec.Binary() {
		msgType = websocket.BinaryMessage
	}

	fmt.Println("\n🎮 Commands: create [borda], join CODE, leave, list, start, ideas a, b, rank a, b, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "quit" {
			break
		}

		env, err := parseCommand(line, s)
		if err != nil {
			fmt.Println(err)
			continue
		}
		data, err := codec.Encode(env)
		if err != nil {
			log.Printf("Encode error: %v", err)
			continue
		}
		if err := conn.WriteMessage(msgType, data); err != nil {
			log.Printf("Write error: %v", err)
			continue
		}
		log.Printf("📤 Sent %s", env.Event)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	log.Println("👋 Goodbye!")
}
