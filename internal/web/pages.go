package web

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/notify"
	"github.com/Shivanand-hulikatti/eventhub/internal/route"
	"github.com/Shivanand-hulikatti/eventhub/internal/view"
)

var pageNames = []string{"home", "list", "detail", "form", "login"}

var funcs = template.FuncMap{
	"when": func(d model.DateTime) string {
		return d.Format("Mon 02 Jan 2006, 15:04")
	},
	"eventPath": route.EventPath,
	"editPath":  route.EditPath,
	"dismissPath": func(id int) string {
		return "/notices/" + strconv.Itoa(id) + "/dismiss"
	},
}

// parsePages pairs the layout with each page template.
func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s page: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// page is what the layout renders around every page body.
type page struct {
	Title   string
	Viewer  *model.Viewer
	Notices []notify.Notice
	Data    any
	// Refresh reloads the page after that many seconds, 0 for never.
	Refresh int
}

// autoRefresh lists the pages without inputs. They reload when the next
// notice is due so that it disappears on its own.
var autoRefresh = map[string]bool{"home": true, "list": true, "detail": true}

// refreshAfter rounds d up to whole seconds, at least one.
func refreshAfter(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

type listPage struct {
	view.ListState
	SignedIn bool
}

type detailPage struct {
	view.DetailState
	SignedIn    bool
	Subscribe   bool
	Unsubscribe bool
	Full        bool
}

type formPage struct {
	view.FormState
	Action string
	Cancel string
}

func (s *Server) render(w http.ResponseWriter, v *visit, status int, name, title string, data any) {
	p := page{Title: title, Notices: v.notices.Active(), Data: data}
	if viewer, ok := v.auth.CurrentViewer(); ok {
		p.Viewer = &viewer
	}
	if due, ok := v.notices.NextDeadline(); ok && autoRefresh[name] {
		p.Refresh = refreshAfter(due.Sub(s.now()))
	}

	var buf bytes.Buffer
	if err := s.pages[name].Execute(&buf, p); err != nil {
		s.log.Error("render page", err, "page", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
