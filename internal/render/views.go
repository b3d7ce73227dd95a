// Package render превращает состояние сторов в HTML. Каждый вид перерисовывается целиком.
package render

import (
	"bytes"
	"html/template"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/gusto/internal/cart"
	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/kitchen"
	"github.com/vladislavdragonenkov/gusto/internal/notice"
	"github.com/vladislavdragonenkov/gusto/internal/state"
)

// Имена видов.
const (
	ViewCart      = "cart"
	ViewTables    = "tables"
	ViewOrders    = "orders"
	ViewArchive   = "archive"
	ViewMenu      = "menu"
	ViewHistory   = "history"
	ViewAccounts  = "accounts"
	ViewCustomers = "customers"
	ViewToast     = "toast"
)

var templates = template.Must(template.New("views").Funcs(template.FuncMap{
	"money": func(m domain.Money) string { return m.String() },
	"datetime": func(t time.Time) string {
		return t.Format("02/01/2006 15:04:05")
	},
	// dataURL пропускает только data URL картинок, которые сформировал сервис.
	"dataURL": func(s string) template.URL {
		if strings.HasPrefix(s, "data:image/") {
			return template.URL(s)
		}
		return ""
	},
}).Parse(templatesHTML))

// Views хранит последний HTML каждого вида.
type Views struct {
	mu       sync.RWMutex
	html     map[string]string
	logger   *log.Entry
	onRender func(name, html string)
}

// NewViews создаёт хранилище видов. onRender может быть nil.
func NewViews(logger *log.Entry, onRender func(name, html string)) *Views {
	if logger == nil {
		logger = log.WithField("component", "render")
	}
	return &Views{html: make(map[string]string), logger: logger, onRender: onRender}
}

// Get возвращает последний HTML вида.
func (v *Views) Get(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	html, ok := v.html[name]
	return html, ok
}

// Names возвращает имена уже отрисованных видов.
func (v *Views) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.html))
	for name := range v.html {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RenderCart реализует cart.Renderer.
func (v *Views) RenderCart(summary cart.Summary) {
	v.execute(ViewCart, summary)
}

// RenderOrders реализует kitchen.OrdersRenderer.
func (v *Views) RenderOrders(active []domain.Order, stats domain.OrderStats) {
	v.execute(ViewOrders, struct {
		Orders []domain.Order
		Stats  domain.OrderStats
	}{active, stats})
}

// RenderHistory реализует kitchen.HistoryRenderer.
func (v *Views) RenderHistory(entries []domain.HistoryEntry, total domain.Money) {
	v.execute(ViewHistory, struct {
		Entries []domain.HistoryEntry
		Total   domain.Money
	}{entries, total})
}

// RenderAccounts реализует kitchen.AccountsRenderer.
func (v *Views) RenderAccounts(accounts []kitchen.AccountView) {
	v.execute(ViewAccounts, accounts)
}

// RenderToast отрисовывает текущее уведомление; nil: уведомление скрыто.
func (v *Views) RenderToast(toast *notice.Toast) {
	v.execute(ViewToast, toast)
}

// Tables возвращает приёмник для коллекции столов.
func (v *Views) Tables() state.Renderer[domain.Table] {
	return state.RenderFunc[domain.Table](func(tables []domain.Table) { v.execute(ViewTables, tables) })
}

// Archive возвращает приёмник для архива заказов.
func (v *Views) Archive() state.Renderer[domain.Order] {
	return state.RenderFunc[domain.Order](func(orders []domain.Order) { v.execute(ViewArchive, orders) })
}

// Menu возвращает приёмник для блюд.
func (v *Views) Menu() state.Renderer[domain.MenuItem] {
	return state.RenderFunc[domain.MenuItem](func(items []domain.MenuItem) { v.execute(ViewMenu, items) })
}

// Customers возвращает приёмник для гостей.
func (v *Views) Customers() state.Renderer[domain.Customer] {
	return state.RenderFunc[domain.Customer](func(c []domain.Customer) { v.execute(ViewCustomers, c) })
}

// Kitchen собирает приёмники панели кухни.
func (v *Views) Kitchen() kitchen.Renderers {
	return kitchen.Renderers{
		Tables:   v.Tables(),
		Orders:   v,
		Archive:  v.Archive(),
		Menu:     v.Menu(),
		History:  v,
		Accounts: v,
	}
}

func (v *Views) execute(name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		v.logger.WithError(err).WithField("view", name).Error("failed to render view")
		return
	}
	html := buf.String()

	v.mu.Lock()
	v.html[name] = html
	v.mu.Unlock()

	if v.onRender != nil {
		v.onRender(name, html)
	}
}
