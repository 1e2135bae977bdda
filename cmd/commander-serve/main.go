// Command commander-serve exposes a trained Commander over a websocket so a
// human can play heads-up against fishbait in real time.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lox/holdem-mccfr/commander"
	"github.com/lox/holdem-mccfr/internal/logging"
	"github.com/lox/holdem-mccfr/internal/node"
	"github.com/lox/holdem-mccfr/internal/scribe"
	"github.com/lox/holdem-mccfr/internal/sequence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

func main() {
	var configPath string
	var debug bool
	flag.StringVar(&configPath, "config", "commander.hcl", "path to session config")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	logging.Setup(debug)

	cfg, err := commander.LoadSessionConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load session config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid session config")
	}
	if cfg.Table.Players != 2 {
		log.Fatal().Int("players", cfg.Table.Players).Msg("commander-serve only plays heads-up right now")
	}

	pack, err := scribe.Load(cfg.Session.PackPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load policy pack")
	}

	seed := cfg.Session.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	table, err := pack.BuildTable(rng)
	if err != nil {
		log.Fatal().Err(err).Msg("rebuild sequence table")
	}

	srv := &gameServer{
		cfg:       cfg,
		pack:      pack,
		table:     table,
		clusterFn: pack.ClusterLookup(),
		seedRng:   rng,
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/play", srv.handlePlay)

	log.Info().Str("addr", cfg.Session.ListenAddr).Msg("commander-serve listening")
	if err := http.ListenAndServe(cfg.Session.ListenAddr, mux); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
}

// gameServer holds the shared, read-only state every connection's session
// plays against: the loaded pack, its rebuilt sequence table, and the
// cluster lookup it was trained with.
type gameServer struct {
	cfg       *commander.SessionConfig
	pack      *scribe.Pack
	table     *sequence.Table
	clusterFn func(round node.Round, index uint64) int

	seedMu  sync.Mutex
	seedRng *rand.Rand

	upgrader websocket.Upgrader
}

// nextRand hands out an independent *rand.Rand per session; math/rand.Rand
// isn't safe for concurrent use, so each connection gets its own stream
// seeded off the server's master generator.
func (s *gameServer) nextRand() *rand.Rand {
	s.seedMu.Lock()
	seed := s.seedRng.Int63()
	s.seedMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func (s *gameServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := newSession(s, conn)
	sess.run()
}

// session drives one human-vs-fishbait hand loop over a single websocket
// connection.
type session struct {
	srv       *gameServer
	conn      *websocket.Conn
	cmd       *commander.Commander
	humanSeat int
	actions   chan ActionData
	closed    chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

func newSession(srv *gameServer, conn *websocket.Conn) *session {
	cmd := commander.New(srv.pack, srv.table, srv.clusterFn, srv.nextRand())
	return &session{
		srv:       srv,
		conn:      conn,
		cmd:       cmd,
		humanSeat: 1 - srv.cfg.Table.FishbaitSeat,
		actions:   make(chan ActionData, 1),
		closed:    make(chan struct{}),
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}

func (s *session) run() {
	defer s.close()
	go s.readPump()
	go s.pingLoop()

	cfg := s.srv.cfg
	for {
		if err := s.cmd.Reset(cfg.Stacks(), cfg.Table.Button, cfg.Table.SmallBlind, cfg.Table.BigBlind, cfg.Table.FishbaitSeat); err != nil {
			s.sendError(fmt.Sprintf("reset hand: %v", err))
			return
		}
		s.send(MessageTypeHandStart, s.cmd.State())

		if err := s.playHand(); err != nil {
			if errors.Is(err, errSessionClosed) {
				return
			}
			s.sendError(err.Error())
			return
		}

		if err := s.cmd.AwardPot(); err != nil {
			s.sendError(fmt.Sprintf("award pot: %v", err))
			return
		}
		s.send(MessageTypeHandEnd, s.cmd.State())

		if err := s.cmd.NewHand(); err != nil {
			s.sendError(fmt.Sprintf("new hand: %v", err))
			return
		}
	}
}

var errSessionClosed = errors.New("commander-serve: session closed")

// playHand drives betting rounds to completion: fishbait decides via Query,
// the human decides over the websocket, and both sides' Apply calls stay
// mirrored by the Commander.
func (s *session) playHand() error {
	for {
		state := s.cmd.State()
		if !state.InProgress {
			return nil
		}

		if state.ActingPlayer == s.humanSeat {
			available, err := s.cmd.GetAvailableActions()
			if err != nil {
				return fmt.Errorf("available actions: %w", err)
			}
			s.send(MessageTypeAvailable, toWireAvailable(available))

			act, err := s.awaitAction()
			if err != nil {
				return err
			}
			action, size, err := fromWireAction(act)
			if err != nil {
				return err
			}
			if err := s.cmd.Apply(action, size); err != nil {
				return fmt.Errorf("apply human action: %w", err)
			}
		} else {
			if _, err := s.cmd.Query(); err != nil {
				return fmt.Errorf("fishbait query: %w", err)
			}
		}

		s.send(MessageTypeState, s.cmd.State())

		state = s.cmd.State()
		if state.InProgress && state.ActingPlayer == node.ChancePlayer {
			if err := s.cmd.ProceedPlay(); err != nil {
				return fmt.Errorf("proceed play: %w", err)
			}
			s.send(MessageTypeState, s.cmd.State())
		}
	}
}

func toWireAvailable(available []commander.AvailableAction) []AvailableActionData {
	out := make([]AvailableActionData, 0, len(available))
	for _, a := range available {
		if a.Policy <= 0 {
			continue
		}
		out = append(out, AvailableActionData{Action: a.Action.String(), Size: a.Size, Policy: a.Policy})
	}
	return out
}

func fromWireAction(act ActionData) (node.Action, int, error) {
	switch act.Action {
	case "fold":
		return node.Fold, 0, nil
	case "check/call", "check_call", "call", "check":
		return node.CheckCall, 0, nil
	case "all-in", "all_in":
		return node.AllIn, 0, nil
	case "bet", "raise":
		if act.Size <= 0 {
			return 0, 0, fmt.Errorf("bet requires a positive size")
		}
		return node.Bet, act.Size, nil
	default:
		return 0, 0, fmt.Errorf("unknown action %q", act.Action)
	}
}

func (s *session) awaitAction() (ActionData, error) {
	select {
	case act := <-s.actions:
		return act, nil
	case <-s.closed:
		return ActionData{}, errSessionClosed
	}
}

func (s *session) send(t MessageType, data interface{}) {
	msg, err := NewMessage(t, data)
	if err != nil {
		log.Error().Err(err).Msg("marshal message")
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		log.Error().Err(err).Msg("write message")
		s.close()
	}
}

// pingLoop pings the client every pingPeriod so the connection stays alive
// while the game loop sits idle, such as when it waits on the human's action.
func (s *session) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				s.close()
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *session) sendError(message string) {
	s.send(MessageTypeError, ErrorData{Message: message})
}

func (s *session) readPump() {
	defer s.close()
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("websocket read error")
			}
			return
		}
		if msg.Type != MessageTypeAction {
			continue
		}
		var act ActionData
		if err := json.Unmarshal(msg.Data, &act); err != nil {
			s.sendError(fmt.Sprintf("invalid action payload: %v", err))
			continue
		}
		select {
		case s.actions <- act:
		case <-s.closed:
			return
		}
	}
}
