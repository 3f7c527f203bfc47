package warehouse

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/wholesale-engine/generic"
)

// NotificationKind is NEW (restock) or BARGAIN (cheaper than stocked).
type NotificationKind string

const (
	NotificationNew     NotificationKind = "NEW"
	NotificationBargain NotificationKind = "BARGAIN"
)

// Notification tells a subscribed partner about an acquisition.
type Notification struct {
	Kind    NotificationKind
	Product generic.ProductKey
	Price   decimal.Decimal // unit price of the triggering acquisition
}

// String renders KIND|product|price.
func (n Notification) String() string {
	return fmt.Sprintf("%s|%s|%s", n.Kind, n.Product, generic.Rounded(n.Price))
}

// DeliveryMethod hands a notification to a partner. The default mailbox
// appends it to the partner's pending list, drained by Notifications.
type DeliveryMethod interface {
	Deliver(p *Partner, n Notification)
}

// DeliveryFunc adapts a function to DeliveryMethod.
type DeliveryFunc func(p *Partner, n Notification)

func (f DeliveryFunc) Deliver(p *Partner, n Notification) { f(p, n) }

type mailbox struct{}

func (mailbox) Deliver(p *Partner, n Notification) {
	p.notifications = append(p.notifications, n)
}

// Mailbox is the in-app delivery method.
var Mailbox DeliveryMethod = mailbox{}

// notificationFor decides which notification, if any, an acquisition of
// product at unit price triggers. Evaluated before stock is deposited.
func notificationFor(p *Product, price decimal.Decimal) (Notification, bool) {
	switch {
	case !p.isNew && !p.HasStock():
		return Notification{Kind: NotificationNew, Product: p.key, Price: price}, true
	case p.HasStock() && price.LessThan(p.LowestPrice()):
		return Notification{Kind: NotificationBargain, Product: p.key, Price: price}, true
	}
	return Notification{}, false
}
