package render

const templatesHTML = `
{{define "cart"}}<section class="cart" data-view="cart">
  <span class="cart-badge"{{if eq .TotalItems 0}} hidden{{end}}>{{.TotalItems}}</span>
  {{if .Lines}}
  <ul class="cart-items">
    {{range .Lines}}<li class="cart-item" data-item-id="{{.ID}}">
      <img src="{{.Image}}" alt="{{.Name}}">
      <span class="item-name">{{.Name}}</span>
      <span class="item-price">{{money .Price}}</span>
      <span class="item-quantity">{{.Quantity}}</span>
      <span class="item-total">{{money .LineTotal}}</span>
    </li>{{end}}
  </ul>
  <div class="cart-summary">
    <p>Subtotal: <strong id="subtotal">{{money .Subtotal}}</strong></p>
    {{if .DeliveryFee}}<p>Entrega: <strong>{{money .DeliveryFee}}</strong></p>{{end}}
    <p>Total: <strong id="total">{{money .Total}}</strong></p>
  </div>
  {{else}}
  <div class="empty-cart">
    <h3>Seu carrinho está vazio</h3>
    <p>Adicione itens do cardápio para começar seu pedido</p>
  </div>
  {{end}}
</section>{{end}}

{{define "tables"}}<section class="tables-grid" data-view="tables">
  {{range .}}<div class="card table-card {{.Status}}" data-table-id="{{.ID}}">
    <span class="table-number">Mesa {{.Number}}</span>
    <span class="table-status {{.Status}}">{{.Status}}</span>
    <p><strong>Cliente:</strong> {{if .CustomerName}}{{.CustomerName}}{{else}}Não informado{{end}}</p>
    <p><strong>Pessoas:</strong> {{.PeopleCount}}</p>
    <span class="status-badge {{.OrderStatus}}">Pedido: {{.OrderStatus}}</span>
    <span class="status-badge {{.PaymentStatus}}">Pagamento: {{.PaymentStatus}}</span>
  </div>{{else}}
  <div class="empty-state">
    <h3>Nenhuma mesa cadastrada</h3>
    <p>Clique em "Nova Mesa" para começar</p>
  </div>{{end}}
</section>{{end}}

{{define "orders"}}<section class="orders" data-view="orders">
  <div class="orders-stats">
    <span id="pending-count">{{.Stats.Pending}}</span>
    <span id="preparing-count">{{.Stats.Preparing}}</span>
  </div>
  {{range .Orders}}<div class="card order-card {{.Status}}" data-order-id="{{.ID}}">
    <span class="order-table">Mesa {{.TableNumber}}</span>
    <span class="order-status status-badge {{.Status}}">{{.Status}}</span>
    <div class="order-customer"><strong>Cliente:</strong> {{.CustomerName}}</div>
    <ul class="order-items">{{range .Items}}<li>{{.Name}} - {{money .Price}}</li>{{end}}</ul>
    <span class="order-total">{{money .Total}}</span>
  </div>{{else}}
  <div class="empty-state">
    <h3>Nenhum pedido ativo</h3>
    <p>Os pedidos aparecerão aqui quando forem realizados</p>
  </div>{{end}}
</section>{{end}}

{{define "archive"}}<section class="orders-archive" data-view="archive">
  {{range .}}<div class="archived-order" data-order-id="{{.ID}}">
    <span>Mesa {{.TableNumber}}</span> <span>{{.CustomerName}}</span> <span>{{money .Total}}</span>
    {{if .Settled}}<span class="settled">pago</span>{{end}}
  </div>{{else}}
  <div class="empty-state"><h3>Nenhum pedido finalizado</h3></div>{{end}}
</section>{{end}}

{{define "menu"}}<section class="menu-grid" data-view="menu">
  {{range .}}<div class="card menu-card" data-menu-id="{{.ID}}">
    {{if .Image}}<img src="{{dataURL .Image}}" alt="{{.Name}}">{{end}}
    <h3>{{.Name}}</h3>
    <p>{{.Description}}</p>
    <span class="menu-price">{{money .Price}}</span>
  </div>{{else}}
  <div class="empty-state">
    <h3>Nenhum prato cadastrado</h3>
    <p>Clique em "Novo Prato" para começar</p>
  </div>{{end}}
</section>{{end}}

{{define "history"}}<section class="history" data-view="history">
  <span id="total-amount">{{money .Total}}</span>
  {{range .Entries}}<div class="history-item">
    <div class="history-table">Mesa {{.TableNumber}}</div>
    <div class="history-customer">{{.CustomerName}}</div>
    <div class="history-date">{{datetime .PaidAt}}</div>
    <div class="history-amount">{{money .Amount}}</div>
  </div>{{else}}
  <div class="empty-state">
    <h3>Nenhum pagamento registrado</h3>
    <p>Os pagamentos finalizados aparecerão aqui</p>
  </div>{{end}}
</section>{{end}}

{{define "accounts"}}<section class="admin-accounts" data-view="accounts">
  {{range .}}<div class="admin-account" data-account-id="{{.ID}}">
    <div class="admin-email">{{.Email}}</div>
    <div class="admin-role">{{.Role}}</div>
    <button class="btn btn-danger"{{if not .Deletable}} disabled{{end}}>Excluir</button>
  </div>{{else}}
  <div class="empty-state"><h3>Nenhuma conta cadastrada</h3></div>{{end}}
</section>{{end}}

{{define "customers"}}<section class="customers" data-view="customers">
  {{range .}}<div class="customer" data-customer-id="{{.ID}}">{{.Name}}</div>{{else}}
  <div class="empty-state"><h3>Nenhum cliente cadastrado</h3></div>{{end}}
</section>{{end}}

{{define "toast"}}<div id="toast" class="toast{{if .}} show{{end}}">{{if .}}<span class="toast-message">{{.Message}}</span>{{end}}</div>{{end}}
`
