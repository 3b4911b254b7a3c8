package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/Shivanand-hulikatti/eventhub/internal/api"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
	"github.com/Shivanand-hulikatti/eventhub/internal/view"
)

const cookieName = "eventhub"

// Cookie value keys.
const (
	keySID   = "sid"
	keyEmail = "email"
	keyName  = "name"
	keyToken = "token"
	keyExp   = "exp"
)

// visit is the per-browser state kept between requests. The cookie only
// carries the id and the signed-in viewer; view models in flight live here
// so a repeated submit reaches the same state machine.
type visit struct {
	id      string
	auth    *auth.Context
	notices *notify.Center
	client  *api.Client

	mu      sync.Mutex
	seen    time.Time
	details map[model.ID]*detailEntry
	forms   map[string]*formEntry
}

type detailEntry struct {
	vm  *view.Detail
	nav *route.Latch
}

type formEntry struct {
	vm  *view.Form
	nav *route.Latch
}

func (v *visit) deps(nav route.Navigator, s *Server) view.Deps {
	return view.Deps{
		Events:  v.client,
		Viewers: v.auth,
		Nav:     nav,
		Notices: v.notices,
		Log:     s.log.With("sid", v.id),
	}
}

// detail returns the live detail view for id. created is true when the
// view is new and still needs a Load.
func (v *visit) detail(s *Server, id model.ID) (e *detailEntry, created bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.details[id]; ok && !e.vm.Closed() {
		return e, false
	}
	nav := &route.Latch{}
	e = &detailEntry{vm: view.NewDetail(v.deps(nav, s)), nav: nav}
	v.details[id] = e
	return e, true
}

func (v *visit) dropDetail(id model.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.details[id]; ok {
		e.vm.Close()
		delete(v.details, id)
	}
}

// form returns the live form stored under key, building it with mk when
// missing.
func (v *visit) form(key string, mk func(nav *route.Latch) *view.Form) (e *formEntry, created bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.forms[key]; ok && !e.vm.Closed() {
		return e, false
	}
	nav := &route.Latch{}
	e = &formEntry{vm: mk(nav), nav: nav}
	v.forms[key] = e
	return e, true
}

func (v *visit) dropForm(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.forms[key]; ok {
		e.vm.Close()
		delete(v.forms, key)
	}
}

// reset drops every live view, e.g. after the viewer changed.
func (v *visit) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, e := range v.details {
		e.vm.Close()
		delete(v.details, id)
	}
	for key, e := range v.forms {
		e.vm.Close()
		delete(v.forms, key)
	}
}

// registry holds the visits of all browsers.
type registry struct {
	mu     sync.Mutex
	visits map[string]*visit
}

func newRegistry() *registry {
	return &registry{visits: make(map[string]*visit)}
}

func (r *registry) get(id string) (*visit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	return v, ok
}

func (r *registry) put(v *visit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits[v.id] = v
}

// sweep forgets visits idle since before cutoff and returns how many.
func (r *registry) sweep(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, v := range r.visits {
		v.mu.Lock()
		idle := v.seen.Before(cutoff)
		v.mu.Unlock()
		if idle {
			v.reset()
			delete(r.visits, id)
			n++
		}
	}
	return n
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visits)
}

// visitFor resolves the browser's visit, creating it and the cookie when
// needed. A visit missing from the registry, e.g. after a restart, is
// rebuilt from the viewer stored in the cookie.
func (s *Server) visitFor(w http.ResponseWriter, r *http.Request) *visit {
	cs, err := s.cookies.Get(r, cookieName)
	if err != nil {
		// A cookie signed with another key decodes to a fresh session.
		s.log.Debug("session cookie rejected", "err", err)
	}

	sid, _ := cs.Values[keySID].(string)
	if v, ok := s.visits.get(sid); ok && sid != "" {
		v.mu.Lock()
		v.seen = s.now()
		v.mu.Unlock()
		return v
	}

	if sid == "" {
		sid = uuid.NewString()
		cs.Values[keySID] = sid
	}
	v := &visit{
		id:      sid,
		notices: notify.New(s.now),
		seen:    s.now(),
		details: make(map[model.ID]*detailEntry),
		forms:   make(map[string]*formEntry),
	}
	v.auth = auth.NewContext(auth.NewMemoryStore(sessionFromCookie(cs)), s.authn,
		auth.WithClock(s.now), auth.WithLogger(s.log))
	if err := v.auth.Init(); err != nil {
		s.log.Error("restore session", err, "sid", sid)
	}
	v.client = api.New(s.cfg.API.BaseURL,
		api.WithHTTPClient(s.http),
		api.WithTimeout(s.cfg.API.RequestTimeout),
		api.WithTokenSource(v.auth),
		api.WithLogger(s.log),
	)
	s.visits.put(v)

	if err := s.saveCookie(w, r, cs, v); err != nil {
		s.log.Error("save session cookie", err, "sid", sid)
	}
	return v
}

// persist writes the visit's viewer into its cookie.
func (s *Server) persist(w http.ResponseWriter, r *http.Request, v *visit) error {
	cs, _ := s.cookies.Get(r, cookieName)
	cs.Values[keySID] = v.id
	return s.saveCookie(w, r, cs, v)
}

func (s *Server) saveCookie(w http.ResponseWriter, r *http.Request, cs *sessions.Session, v *visit) error {
	if sess, ok := v.auth.Session(); ok {
		cs.Values[keyEmail] = sess.Viewer.Email
		cs.Values[keyName] = sess.Viewer.Name
		cs.Values[keyToken] = sess.Viewer.Token
		cs.Values[keyExp] = sess.ExpiresAt.Unix()
		if sess.ExpiresAt.IsZero() {
			cs.Values[keyExp] = int64(0)
		}
	} else {
		delete(cs.Values, keyEmail)
		delete(cs.Values, keyName)
		delete(cs.Values, keyToken)
		delete(cs.Values, keyExp)
	}
	return cs.Save(r, w)
}

func sessionFromCookie(cs *sessions.Session) *auth.Session {
	email, _ := cs.Values[keyEmail].(string)
	if email == "" {
		return nil
	}
	name, _ := cs.Values[keyName].(string)
	token, _ := cs.Values[keyToken].(string)
	s := &auth.Session{Viewer: model.Viewer{Email: email, Name: name, Token: token}}
	if exp, ok := cs.Values[keyExp].(int64); ok && exp > 0 {
		s.ExpiresAt = time.Unix(exp, 0)
	}
	return s
}
