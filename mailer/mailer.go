package mailer

import (
	"fmt"
	"log"
	"os"
	"strings"

	"folio/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Client sends transactional mail through SendGrid.
type Client struct {
	apiKey string
	from   string
}

func NewClient() *Client {
	return &Client{
		apiKey: os.Getenv("SENDGRID_API_KEY"),
		from:   os.Getenv("MAIL_FROM"),
	}
}

func (c *Client) Send(to, subject, body string) error {
	if c.apiKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	if to == "" {
		return fmt.Errorf("to address is empty")
	}

	fromEmail := mail.NewEmail("Folio Books", c.from)
	toEmail := mail.NewEmail("", to)
	htmlContent := fmt.Sprintf("<pre>%s</pre>", body)

	message := mail.NewSingleEmail(fromEmail, subject, toEmail, body, htmlContent)
	client := sendgrid.NewSendClient(c.apiKey)

	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	log.Printf("[sendgrid] mail sent: status=%d to=%s subject=%s", response.StatusCode, to, subject)
	return nil
}

// SendOrderReceipt renders a plain-text receipt for a paid order.
func (c *Client) SendOrderReceipt(to string, o *models.Order) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s\n\n", o.OrderID)
	for _, l := range o.Lines {
		fmt.Fprintf(&b, "%dx %s @ %.2f\n", l.Quantity, l.Name, l.Price)
	}
	fmt.Fprintf(&b, "\nItems:    %.2f\n", o.ItemsPrice)
	fmt.Fprintf(&b, "Shipping: %.2f\n", o.ShippingPrice)
	fmt.Fprintf(&b, "Tax:      %.2f\n", o.TaxPrice)
	fmt.Fprintf(&b, "Total:    %.2f\n", o.TotalPrice)
	fmt.Fprintf(&b, "\nShipping to: %s, %s, %s %s\n",
		o.ShippingAddress.FullName, o.ShippingAddress.StreetAddress,
		o.ShippingAddress.City, o.ShippingAddress.PinCode)

	return c.Send(to, "Your receipt for order "+o.OrderID, b.String())
}
