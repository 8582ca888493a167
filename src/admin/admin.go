package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/uccn-net/uccn-go/src/core"
)

// TODO: Add authentication

type AdminSocket struct {
	node     *core.Node
	log      core.Logger
	listener net.Listener
	handlers map[string]handler
	mutex    sync.Mutex
	conns    map[net.Conn]struct{}
	done     chan struct{}
	config   struct {
		listenaddr ListenAddress
	}
}

type AdminSocketRequest struct {
	Name      string          `json:"request"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	KeepAlive bool            `json:"keepalive,omitempty"`
}

type AdminSocketResponse struct {
	Status   string             `json:"status"`
	Error    string             `json:"error,omitempty"`
	Request  AdminSocketRequest `json:"request"`
	Response json.RawMessage    `json:"response"`
}

// HandlerFunc handles one admin request. Its result is sent back as JSON.
type HandlerFunc func(json.RawMessage) (interface{}, error)

type handler struct {
	desc    string
	args    []string
	handler HandlerFunc
}

type ListResponse struct {
	List []ListEntry `json:"list"`
}

type ListEntry struct {
	Command     string   `json:"command"`
	Description string   `json:"description"`
	Fields      []string `json:"fields,omitempty"`
}

// AddHandler is called for each admin function to add the handler and help documentation to the API.
func (a *AdminSocket) AddHandler(name, desc string, args []string, handlerfunc HandlerFunc) error {
	if _, ok := a.handlers[strings.ToLower(name)]; ok {
		return errors.New("handler already exists")
	}
	a.handlers[strings.ToLower(name)] = handler{
		desc:    desc,
		args:    args,
		handler: handlerfunc,
	}
	return nil
}

// CallHandler runs the named handler in process, as a request on the
// socket would.
func (a *AdminSocket) CallHandler(name string, args json.RawMessage) (interface{}, error) {
	h, ok := a.handlers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown action '%s', try 'list' for help", name)
	}
	return h.handler(args)
}

// New creates the admin socket for n and starts listening. It returns nil
// when the listen address is empty or "none".
func New(n *core.Node, log core.Logger, opts ...SetupOption) (*AdminSocket, error) {
	a := &AdminSocket{
		node:     n,
		log:      log,
		handlers: make(map[string]handler),
		conns:    make(map[net.Conn]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		a._applyOption(opt)
	}
	if a.config.listenaddr == "none" || a.config.listenaddr == "" {
		return nil, nil
	}
	_ = a.AddHandler("list", "List available commands", []string{}, func(_ json.RawMessage) (interface{}, error) {
		res := &ListResponse{}
		for name, handler := range a.handlers {
			res.List = append(res.List, ListEntry{
				Command:     name,
				Description: handler.desc,
				Fields:      handler.args,
			})
		}
		sort.SliceStable(res.List, func(i, j int) bool {
			return strings.Compare(res.List[i].Command, res.List[j].Command) < 0
		})
		return res, nil
	})
	if err := a.listen(); err != nil {
		return nil, err
	}
	go a.accept()
	return a, nil
}

// SetupAdminHandlers registers the handlers that report node state.
func (a *AdminSocket) SetupAdminHandlers() {
	_ = a.AddHandler(
		"getSelf", "Show details about this node", []string{},
		func(in json.RawMessage) (interface{}, error) {
			req := &GetSelfRequest{}
			res := &GetSelfResponse{}
			if err := json.Unmarshal(in, &req); err != nil {
				return nil, err
			}
			if err := a.getSelfHandler(req, res); err != nil {
				return nil, err
			}
			return res, nil
		},
	)
	_ = a.AddHandler(
		"getPeers", "Show the peers this node has heard from", []string{},
		func(in json.RawMessage) (interface{}, error) {
			req := &GetPeersRequest{}
			res := &GetPeersResponse{}
			if err := json.Unmarshal(in, &req); err != nil {
				return nil, err
			}
			if err := a.getPeersHandler(req, res); err != nil {
				return nil, err
			}
			return res, nil
		},
	)
	_ = a.AddHandler(
		"getTrackers", "Show tracked resources and the peers providing them", []string{},
		func(in json.RawMessage) (interface{}, error) {
			req := &GetTrackersRequest{}
			res := &GetTrackersResponse{}
			if err := json.Unmarshal(in, &req); err != nil {
				return nil, err
			}
			if err := a.getTrackersHandler(req, res); err != nil {
				return nil, err
			}
			return res, nil
		},
	)
	_ = a.AddHandler(
		"getProviders", "Show provided resources and the peers tracking them", []string{},
		func(in json.RawMessage) (interface{}, error) {
			req := &GetProvidersRequest{}
			res := &GetProvidersResponse{}
			if err := json.Unmarshal(in, &req); err != nil {
				return nil, err
			}
			if err := a.getProvidersHandler(req, res); err != nil {
				return nil, err
			}
			return res, nil
		},
	)
	_ = a.AddHandler(
		"getStats", "Show traffic counters", []string{},
		func(in json.RawMessage) (interface{}, error) {
			req := &GetStatsRequest{}
			res := &GetStatsResponse{}
			if err := json.Unmarshal(in, &req); err != nil {
				return nil, err
			}
			if err := a.getStatsHandler(req, res); err != nil {
				return nil, err
			}
			return res, nil
		},
	)
}

// Addr is where the admin socket listens.
func (a *AdminSocket) Addr() net.Addr {
	return a.listener.Addr()
}

// Stop will stop the admin API and close the socket.
func (a *AdminSocket) Stop() error {
	if a == nil {
		return nil
	}
	err := a.listener.Close()
	<-a.done
	a.mutex.Lock()
	for conn := range a.conns {
		err = multierr.Append(err, conn.Close())
	}
	a.conns = map[net.Conn]struct{}{}
	a.mutex.Unlock()
	return err
}

// listen binds the admin socket.
func (a *AdminSocket) listen() error {
	listenaddr := string(a.config.listenaddr)
	u, err := url.Parse(listenaddr)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "unix":
			if _, err := os.Stat(listenaddr[7:]); err == nil {
				a.log.Debugln("Admin socket", listenaddr[7:], "already exists, trying to clean up")
				if _, err := net.DialTimeout("unix", listenaddr[7:], time.Second*2); err == nil || err.(net.Error).Timeout() {
					return fmt.Errorf("admin socket %s already exists and is in use by another process", listenaddr[7:])
				} else {
					if err := os.Remove(listenaddr[7:]); err == nil {
						a.log.Debugln(listenaddr[7:], "was cleaned up")
					} else {
						return fmt.Errorf("admin socket %s already exists and was not cleaned up: %w", listenaddr[7:], err)
					}
				}
			}
			a.listener, err = net.Listen("unix", listenaddr[7:])
			if err == nil {
				switch listenaddr[7:8] {
				case "@": // maybe abstract namespace
				default:
					if err := os.Chmod(listenaddr[7:], 0660); err != nil {
						a.log.Warnln("WARNING:", listenaddr[:7], "may have unsafe permissions!")
					}
				}
			}
		case "tcp":
			a.listener, err = net.Listen("tcp", u.Host)
		default:
			a.listener, err = net.Listen("tcp", listenaddr)
		}
	} else {
		a.listener, err = net.Listen("tcp", listenaddr)
	}
	if err != nil {
		return fmt.Errorf("admin socket failed to listen: %w", err)
	}
	a.log.Infof("%s admin socket listening on %s\n",
		strings.ToUpper(a.listener.Addr().Network()),
		a.listener.Addr().String())
	return nil
}

// accept is run by New and manages API connections.
func (a *AdminSocket) accept() {
	defer close(a.done)
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			a.log.Debugln("Admin socket accept error:", err)
			continue
		}
		a.mutex.Lock()
		a.conns[conn] = struct{}{}
		a.mutex.Unlock()
		go a.handleRequest(conn)
	}
}

// handleRequest calls the request handler for each request sent to the admin API.
func (a *AdminSocket) handleRequest(conn net.Conn) {
	decoder := json.NewDecoder(conn)
	decoder.DisallowUnknownFields()

	encoder := json.NewEncoder(conn)
	encoder.SetIndent("", "  ")

	defer func() {
		a.mutex.Lock()
		delete(a.conns, conn)
		a.mutex.Unlock()
		conn.Close()
	}()

	for {
		var err error
		var buf json.RawMessage
		var req AdminSocketRequest
		var resp = &AdminSocketResponse{
			Status: "success",
		}
		if err = func() error {
			if err = decoder.Decode(&buf); err != nil {
				return fmt.Errorf("Failed to find request")
			}
			if err = json.Unmarshal(buf, &req); err != nil {
				return fmt.Errorf("Failed to unmarshal request")
			}
			resp.Request = req
			if req.Name == "" {
				return fmt.Errorf("No request specified")
			}
			if len(req.Arguments) == 0 {
				req.Arguments = []byte("{}")
			}
			res, err := a.CallHandler(req.Name, req.Arguments)
			if err != nil {
				return err
			}
			if resp.Response, err = json.Marshal(res); err != nil {
				return fmt.Errorf("Failed to marshal response: %w", err)
			}
			return nil
		}(); err != nil {
			if len(buf) == 0 {
				// Nothing was read, the client went away
				return
			}
			resp.Status = "error"
			resp.Error = err.Error()
		}
		if err = encoder.Encode(resp); err != nil {
			a.log.Debugln("Encode error:", err)
			return
		}
		if !req.KeepAlive {
			return
		}
	}
}
