package billing

import "encoding/json"

// CheckoutSession is the slice of Stripe's checkout session object this
// service reads.
type CheckoutSession struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Customer     string `json:"customer"`
	ClientRef    string `json:"client_reference_id"`
	Status       string `json:"status"`
	Subscription string `json:"subscription"`
}

// Subscription is the slice of Stripe's subscription object this service
// reads.
type Subscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
}

// Event is a webhook envelope. Data.Object is decoded a second time into the
// concrete type once Type is known.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Webhook event types this service reacts to.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// StatusGrantsAccess reports whether a subscription status unlocks premium
// features.
func StatusGrantsAccess(status string) bool {
	return status == "active" || status == "trialing"
}
