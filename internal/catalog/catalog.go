// Package catalog: статическое меню клиентской страницы, сгруппированное по вкладкам.
package catalog

import (
	"slices"
	"strings"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// Вкладки меню.
const (
	TabEntradas = "entradas"
	TabBelem    = "belem"
	TabPasteis  = "pasteis"
)

// Tab: вкладка меню с её позициями.
type Tab struct {
	Key      string           `json:"key"`
	Title    string           `json:"title"`
	Products []domain.Product `json:"products"`
}

// Catalog: неизменяемое меню.
type Catalog struct {
	tabs []Tab
	byID map[string]domain.Product
}

// New собирает каталог из вкладок. ID продуктов должны быть уникальны.
func New(tabs []Tab) *Catalog {
	c := &Catalog{byID: make(map[string]domain.Product)}
	for _, tab := range tabs {
		tab.Products = slices.Clone(tab.Products)
		for i := range tab.Products {
			tab.Products[i].Tab = tab.Key
			c.byID[tab.Products[i].ID] = tab.Products[i]
		}
		c.tabs = append(c.tabs, tab)
	}
	return c
}

// Default возвращает стандартное меню ресторана.
func Default() *Catalog {
	return New(defaultTabs())
}

// Tabs возвращает все вкладки в порядке отображения.
func (c *Catalog) Tabs() []Tab {
	out := make([]Tab, len(c.tabs))
	for i, tab := range c.tabs {
		tab.Products = slices.Clone(tab.Products)
		out[i] = tab
	}
	return out
}

// Tab возвращает вкладку по ключу.
func (c *Catalog) Tab(key string) (Tab, bool) {
	for _, tab := range c.tabs {
		if tab.Key == key {
			tab.Products = slices.Clone(tab.Products)
			return tab, true
		}
	}
	return Tab{}, false
}

// Product возвращает продукт по ID.
func (c *Catalog) Product(id string) (domain.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Search ищет по названию и описанию без учёта регистра. Пустой запрос возвращает всё меню.
func (c *Catalog) Search(term string) []domain.Product {
	needle := strings.ToLower(strings.TrimSpace(term))
	var out []domain.Product
	for _, tab := range c.tabs {
		for _, p := range tab.Products {
			if needle == "" ||
				strings.Contains(strings.ToLower(p.Name), needle) ||
				strings.Contains(strings.ToLower(p.Description), needle) {
				out = append(out, p)
			}
		}
	}
	return out
}

func product(id, name, description string, reais, centavos int64, image string) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       domain.MoneyFromReais(reais, centavos),
		Image:       "https://images.unsplash.com/" + image + "?w=300&h=200&fit=crop",
	}
}

func defaultTabs() []Tab {
	return []Tab{
		{
			Key:   TabEntradas,
			Title: "Entradas",
			Products: []domain.Product{
				product("1", "Camarão empanado com fritas",
					"10 Camarões deliciosos empanados, acompanhados de uma porção generosa de batata frita crocante. Servido com molho especial da casa.",
					48, 50, "photo-1565299624946-b28f40a0ca4b"),
				product("2", "Calabresa acebolada com batata frita",
					"Deliciosa calabresa acebolada acompanhada de batata frita crocante. Um clássico da culinária brasileira preparado com ingredientes frescos.",
					28, 50, "photo-1546833999-b9f581a1996d"),
				product("3", "Iscas de Filé mignon com Batata Frita",
					"200g de filé mignon acebolado acompanhado de 250g de batata frita. Carne macia e suculenta preparada no ponto ideal.",
					48, 50, "photo-1558030006-450675393462"),
				product("4", "Porção de Batata Frita",
					"Porção generosa de batata frita crocante por fora e macia por dentro. Perfeita para compartilhar ou como acompanhamento.",
					18, 90, "photo-1573080496219-bb080dd4f877"),
			},
		},
		{
			Key:   TabBelem,
			Title: "Sabores de Belém",
			Products: []domain.Product{
				product("5", "Combo Açaí Duplo",
					"Dois açaís de 500ml com granola, banana e leite condensado. Refrescante e nutritivo, perfeito para compartilhar.",
					35, 90, "photo-1571091718767-18b5b1457add"),
				product("6", "Dupla de Pastéis Paraenses",
					"Dois pastéis tradicionais paraenses com queijo coalho e carne de sol. Receita autêntica da região Norte.",
					22, 50, "photo-1541745537411-b8046dc6d66c"),
				product("7", "Combo Tapioca Dupla",
					"Duas tapiocas recheadas com queijo e presunto. Massa crocante e recheio generoso.",
					26, 90, "photo-1574484284002-952d92456975"),
				product("8", "Dupla de Coxinhas Gigantes",
					"Duas coxinhas grandes recheadas com frango desfiado temperado. Crocantes por fora, macias por dentro.",
					19, 90, "photo-1578662996442-48f60103fc96"),
			},
		},
		{
			Key:   TabPasteis,
			Title: "Pastéis",
			Products: []domain.Product{
				product("9", "Pastel de Camarão",
					"Pastel crocante recheado com camarões frescos e temperos especiais. Uma explosão de sabores do mar.",
					18, 90, "photo-1565299624946-b28f40a0ca4b"),
				product("10", "Pastel de Queijo",
					"Tradicional pastel de queijo derretido, crocante e saboroso. Clássico que nunca sai de moda.",
					12, 50, "photo-1571091718767-18b5b1457add"),
				product("11", "Pastel de Carne",
					"Pastel recheado com carne moída temperada e cebola. Receita tradicional da família.",
					15, 90, "photo-1546833999-b9f581a1996d"),
				product("12", "Pastel de Frango com Catupiry",
					"Delicioso pastel recheado com frango desfiado e catupiry cremoso. Combinação irresistível.",
					16, 90, "photo-1578662996442-48f60103fc96"),
				product("13", "Pastel de Pizza",
					"Pastel especial com recheio de mussarela, presunto e molho de tomate. O melhor dos dois mundos.",
					17, 50, "photo-1565299507177-b0ac66763828"),
				product("14", "Pastel Doce de Banana com Canela",
					"Pastel doce recheado com banana caramelizada e canela. Perfeito para sobremesa.",
					14, 90, "photo-1571091655789-405eb7a3a3a8"),
			},
		},
	}
}
