package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/eventhub/internal/api"
	"github.com/Shivanand-hulikatti/eventhub/internal/ical"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
	"github.com/Shivanand-hulikatti/eventhub/internal/view"
)

func seeOther(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// ─── Pages ────────────────────────────────────────────────────────────────────

// home handles GET /
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	v.notices.Expire(s.now())
	s.render(w, v, http.StatusOK, "home", "EventHub", nil)
}

// listEvents handles GET /events
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	l := view.NewList(v.deps(&route.Latch{}, s))
	l.Load(r.Context())
	l.Tick(s.now())

	_, signedIn := v.auth.CurrentViewer()
	s.render(w, v, http.StatusOK, "list", "Events", listPage{ListState: l.State(), SignedIn: signedIn})
}

// newEvent handles POST /events/new
// Anonymous visitors are sent through the login page first.
func (s *Server) newEvent(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	nav := &route.Latch{}
	view.NewList(v.deps(nav, s)).Create()
	target, ok := nav.Take()
	if !ok {
		target = route.Events
	}
	seeOther(w, r, target)
}

// eventDetails handles GET /events/{id}
// The event is fetched again unless the page is mid-operation or still
// showing an error.
func (s *Server) eventDetails(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	id := eventID(r)
	e, created := v.detail(s, id)

	st := e.vm.State()
	idle := !st.Loading && !st.Subscribing && st.Delete == view.DeleteIdle && st.Err == nil
	if created || idle {
		e.vm.Load(r.Context(), id)
	}
	e.vm.Tick(s.now())
	st = e.vm.State()

	_, signedIn := v.auth.CurrentViewer()
	data := detailPage{
		DetailState: st,
		SignedIn:    signedIn,
		Subscribe:   st.SubscribeAction() == view.ActionSubscribe,
		Unsubscribe: st.SubscribeAction() == view.ActionUnsubscribe,
		Full:        st.Event != nil && st.Event.IsFull(),
	}
	title := "Event"
	status := http.StatusOK
	if st.Event != nil {
		title = st.Event.Title
	} else if st.Err != nil && errors.Is(st.Err, api.ErrNotFound) {
		status = http.StatusNotFound
	}
	s.render(w, v, status, "detail", title, data)
}

// createPage handles GET /events/create
func (s *Server) createPage(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	e, _ := v.form(createKey, s.newCreateForm(v))
	e.vm.Tick(s.now())
	s.render(w, v, http.StatusOK, "form", "New event", formPage{
		FormState: e.vm.State(),
		Action:    route.CreateEvent,
		Cancel:    route.Events,
	})
}

// createEvent handles POST /events/create
func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	e, _ := v.form(createKey, s.newCreateForm(v))
	s.submitForm(w, r, v, createKey, e)
}

// editPage handles GET /events/edit/{id}
func (s *Server) editPage(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	id := eventID(r)
	e, created := v.form(editKey(id), s.newEditForm(v, id))
	if created {
		e.vm.Load(r.Context())
	}
	e.vm.Tick(s.now())
	s.render(w, v, http.StatusOK, "form", "Edit event", formPage{
		FormState: e.vm.State(),
		Action:    route.EditPath(id),
		Cancel:    route.EventPath(id),
	})
}

// editEvent handles POST /events/edit/{id}
func (s *Server) editEvent(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	id := eventID(r)
	e, created := v.form(editKey(id), s.newEditForm(v, id))
	if created {
		e.vm.Load(r.Context())
	}
	s.submitForm(w, r, v, editKey(id), e)
}

// loginPage handles GET /login
func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	v.notices.Expire(s.now())
	st := view.LoginState{Next: route.SafeNext(r.URL.Query().Get("next"))}
	s.render(w, v, http.StatusOK, "login", "Sign in", st)
}

// ─── Actions ──────────────────────────────────────────────────────────────────

// login handles POST /login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	nav := &route.Latch{}
	l := view.NewLogin(v.deps(nav, s), v.auth, r.PostForm.Get("next"))
	l.Submit(detached(r), model.Credentials{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	})

	target, ok := nav.Take()
	if !ok {
		status := http.StatusUnauthorized
		if st := l.State(); st.Err != nil && st.Err.Kind == view.ValidationFailed {
			status = http.StatusBadRequest
		}
		s.render(w, v, status, "login", "Sign in", l.State())
		return
	}

	// Views built for the previous viewer must not outlive it.
	v.reset()
	if err := s.persist(w, r, v); err != nil {
		s.log.Error("save session cookie", err, "sid", v.id)
	}
	seeOther(w, r, target)
}

// logout handles POST /logout
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	if err := v.auth.Logout(); err != nil {
		s.log.Error("logout", err, "sid", v.id)
	}
	v.reset()
	if err := s.persist(w, r, v); err != nil {
		s.log.Error("save session cookie", err, "sid", v.id)
	}
	v.notices.Post("SignedOut", notify.Success, "You are signed out.", notify.SuccessTTL)
	seeOther(w, r, route.Events)
}

// toggleSubscription handles POST /events/{id}/subscription
func (s *Server) toggleSubscription(w http.ResponseWriter, r *http.Request) {
	_, e, id := s.detailFor(w, r)
	e.vm.ToggleSubscription(detached(r))
	s.afterDetail(w, r, e, id)
}

// requestDelete handles POST /events/{id}/delete
func (s *Server) requestDelete(w http.ResponseWriter, r *http.Request) {
	_, e, id := s.detailFor(w, r)
	e.vm.RequestDelete()
	s.afterDetail(w, r, e, id)
}

// cancelDelete handles POST /events/{id}/delete/cancel
func (s *Server) cancelDelete(w http.ResponseWriter, r *http.Request) {
	_, e, id := s.detailFor(w, r)
	e.vm.CancelDelete()
	s.afterDetail(w, r, e, id)
}

// confirmDelete handles POST /events/{id}/delete/confirm
func (s *Server) confirmDelete(w http.ResponseWriter, r *http.Request) {
	v, e, id := s.detailFor(w, r)
	e.vm.ConfirmDelete(detached(r))
	if e.vm.State().Deleted() {
		v.dropDetail(id)
	}
	s.afterDetail(w, r, e, id)
}

// dismissNotice handles POST /notices/{nid}/dismiss
func (s *Server) dismissNotice(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	if nid, err := strconv.Atoi(chi.URLParam(r, "nid")); err == nil {
		v.notices.Dismiss(nid)
	}
	seeOther(w, r, backTo(r))
}

// calendar handles GET /events/{id}/calendar.ics
func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	v := s.visitFor(w, r)
	e, err := v.client.GetEvent(r.Context(), eventID(r))
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, api.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ical.Filename(*e)+`"`)
	_, _ = w.Write([]byte(ical.Render(*e, s.cfg.PublicURL)))
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

const createKey = "create"

func editKey(id model.ID) string { return "edit:" + id.String() }

func (s *Server) newCreateForm(v *visit) func(*route.Latch) *view.Form {
	return func(nav *route.Latch) *view.Form {
		f := view.NewCreateForm(v.deps(nav, s))
		f.RedirectDelay = 0
		return f
	}
}

func (s *Server) newEditForm(v *visit, id model.ID) func(*route.Latch) *view.Form {
	return func(nav *route.Latch) *view.Form {
		f := view.NewEditForm(v.deps(nav, s), id)
		f.RedirectDelay = 0
		return f
	}
}

// submitForm saves the posted fields and redirects to wherever the form
// navigated, or back to the form when it stayed.
func (s *Server) submitForm(w http.ResponseWriter, r *http.Request, v *visit, key string, e *formEntry) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	f := r.PostForm
	if f.Has("cancel") {
		e.vm.Cancel()
	} else {
		e.vm.SetFields(view.FormFields{
			Title:       f.Get("title"),
			Date:        f.Get("date"),
			Time:        f.Get("time"),
			Location:    f.Get("location"),
			Description: f.Get("description"),
			Capacity:    f.Get("capacity"),
		})
		e.vm.Submit(detached(r))
	}

	if target, ok := e.nav.Take(); ok {
		if e.vm.Closed() {
			v.dropForm(key)
		}
		seeOther(w, r, target)
		return
	}
	seeOther(w, r, r.URL.Path)
}

// detailFor resolves the detail view a POST acts on, loading it first
// when this browser has not opened the page yet.
func (s *Server) detailFor(w http.ResponseWriter, r *http.Request) (*visit, *detailEntry, model.ID) {
	v := s.visitFor(w, r)
	id := eventID(r)
	e, created := v.detail(s, id)
	if created {
		e.vm.Load(r.Context(), id)
	}
	return v, e, id
}

func (s *Server) afterDetail(w http.ResponseWriter, r *http.Request, e *detailEntry, id model.ID) {
	if target, ok := e.nav.Take(); ok {
		seeOther(w, r, target)
		return
	}
	seeOther(w, r, route.EventPath(id))
}

// backTo is the local page the request came from.
func backTo(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return route.Events
	}
	target := ref.Path
	if ref.RawQuery != "" {
		target += "?" + ref.RawQuery
	}
	if !strings.HasPrefix(target, "/") {
		return route.Events
	}
	return route.SafeNext(target)
}
