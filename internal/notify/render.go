package notify

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"eshop/internal/models"
)

// Sender addresses of the two notification kinds.
const (
	WelcomeFrom = `"SimpleEshop" <noreply@simpleeshop.com>`
	OrdersFrom  = `"SimpleEshop" <orders@simpleeshop.com>`
)

var (
	ErrNoRecipient = errors.New("no email address provided")
	ErrNoItems     = errors.New("no items in order")
)

//go:embed templates/*.tmpl
var templateFS embed.FS

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

var (
	textTemplates = texttemplate.Must(texttemplate.New("").
			Funcs(texttemplate.FuncMap{"money": money}).
			ParseFS(templateFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmltemplate.Must(htmltemplate.New("").
			Funcs(htmltemplate.FuncMap{"money": money}).
			ParseFS(templateFS, "templates/*.html.tmpl"))
)

type welcomeView struct {
	Name string
}

type orderView struct {
	Name      string
	OrderID   string
	OrderDate string
	Items     []itemView
	Total     float64
}

type itemView struct {
	Name     string
	Quantity int
	Price    float64
	Subtotal float64
}

func render(name string, data any) (text, html string, err error) {
	var tb, hb bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&tb, name+".txt.tmpl", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s text: %w", name, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&hb, name+".html.tmpl", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s html: %w", name, err)
	}
	return tb.String(), hb.String(), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// RenderWelcome builds the welcome email from a user-registrations object.
func RenderWelcome(payload []byte) (Email, error) {
	var msg models.WelcomeMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Email{}, fmt.Errorf("invalid welcome payload: %w", err)
	}
	u := msg.UserData
	if u.Email == "" {
		return Email{}, ErrNoRecipient
	}

	text, html, err := render("welcome", welcomeView{Name: orDefault(u.Username, "there")})
	if err != nil {
		return Email{}, err
	}
	return Email{
		From:    WelcomeFrom,
		To:      u.Email,
		Subject: fmt.Sprintf("Welcome to SimpleEshop, %s!", orDefault(u.Username, "New User")),
		Text:    text,
		HTML:    html,
	}, nil
}

// RenderOrderConfirmation builds the confirmation email from an
// order-confirmations object.
func RenderOrderConfirmation(payload []byte) (Email, error) {
	var msg models.OrderConfirmationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Email{}, fmt.Errorf("invalid order payload: %w", err)
	}
	o := msg.OrderData
	if o.Email == "" {
		return Email{}, ErrNoRecipient
	}
	if len(o.Items) == 0 {
		return Email{}, ErrNoItems
	}

	view := orderView{
		Name:    orDefault(o.Username, "there"),
		OrderID: o.OrderID,
		Total:   float64(o.Total),
	}
	if !o.OrderDate.IsZero() {
		view.OrderDate = o.OrderDate.UTC().Format("January 2, 2006")
	}
	for _, it := range o.Items {
		price := float64(it.Price)
		view.Items = append(view.Items, itemView{
			Name:     orDefault(it.Name, "Unknown Item"),
			Quantity: int(it.Quantity),
			Price:    price,
			Subtotal: price * float64(it.Quantity),
		})
	}

	text, html, err := render("order", view)
	if err != nil {
		return Email{}, err
	}
	return Email{
		From:    OrdersFrom,
		To:      o.Email,
		Subject: fmt.Sprintf("Your SimpleEshop Order #%s Confirmation", o.OrderID),
		Text:    text,
		HTML:    html,
	}, nil
}
