package orders

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	"folio/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

func invoiceSecret() []byte {
	if s := os.Getenv("INVOICE_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("folio-invoice-secret")
}

// invoiceQRPayload signs orderID|userID|timestamp so the QR on a printed
// invoice can be verified against tampering.
func invoiceQRPayload(orderID, userID string) string {
	data := fmt.Sprintf("%s|%s|%d", orderID, userID, time.Now().Unix())
	h := hmac.New(sha256.New, invoiceSecret())
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s|%s", data, sig)
}

// PrintInvoice renders a PDF invoice for the order. Only the owner or an
// admin may fetch it.
func (h *Handlers) PrintInvoice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.pipeline.GetOrder(ctx, ps.ByName("orderid"))
	if err != nil {
		utils.RespondWithFailure(w, err)
		return
	}
	if !canView(r, o) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	qrPNG, err := qrcode.Encode(invoiceQRPayload(o.OrderID, o.UserID), qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Order ID: %s", o.OrderID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Placed: %s", o.CreatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Ship To: %s, %s, %s %s", o.ShippingAddress.FullName,
		o.ShippingAddress.StreetAddress, o.ShippingAddress.City, o.ShippingAddress.PinCode))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(100, 8, "Item")
	pdf.Cell(30, 8, "Qty")
	pdf.Cell(40, 8, "Price")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	for _, l := range o.Lines {
		pdf.Cell(100, 8, l.Name)
		pdf.Cell(30, 8, fmt.Sprintf("%d", l.Quantity))
		pdf.Cell(40, 8, fmt.Sprintf("%.2f", l.Price))
		pdf.Ln(8)
	}
	pdf.Ln(4)

	pdf.Cell(0, 8, fmt.Sprintf("Items: %.2f", o.ItemsPrice))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Shipping: %.2f", o.ShippingPrice))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Tax: %.2f", o.TaxPrice))
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %.2f", o.TotalPrice))
	pdf.Ln(8)
	if o.IsPaid {
		pdf.Cell(0, 8, "Status: PAID")
	} else {
		pdf.Cell(0, 8, "Status: UNPAID")
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=invoice-"+o.OrderID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
