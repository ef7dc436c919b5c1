package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// Invoice is a backend invoice record. Extraction fields stay nil until the
// document has been processed.
type Invoice struct {
	InvoiceID        string   `json:"invoiceId"`
	SupplierUID      string   `json:"supplierUid,omitempty"`
	SupplierEmail    string   `json:"supplierEmail,omitempty"`
	SupplierRUC      string   `json:"supplierRuc,omitempty"`
	OriginalFilename string   `json:"originalFilename,omitempty"`
	Status           string   `json:"status"`
	Processed        bool     `json:"processed"`
	TotalAmount      *float64 `json:"monto_total,omitempty"`
	Currency         string   `json:"moneda,omitempty"`
	IssuerRUC        string   `json:"ruc_emisor,omitempty"`
	IssuerName       string   `json:"razon_social_emisor,omitempty"`
	IssueDate        string   `json:"fecha_emision,omitempty"`
	DueDate          string   `json:"fecha_vencimiento,omitempty"`
	InvoiceNumber    string   `json:"numero_factura,omitempty"`
	Concept          string   `json:"concepto,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	CreatedAt        string   `json:"createdAt,omitempty"`
	ProcessedAt      string   `json:"processedAt,omitempty"`
}

// InvoiceList is the /invoices response envelope.
type InvoiceList struct {
	Items []Invoice `json:"items"`
	Total int       `json:"total"`
}

// UploadResult is the response to an invoice upload.
type UploadResult struct {
	InvoiceID   string `json:"invoiceId"`
	Status      string `json:"status"`
	StoragePath string `json:"storagePath"`
	Message     string `json:"message"`
}

// ProcessResult carries the extraction outcome for a processed invoice.
type ProcessResult struct {
	InvoiceID     string   `json:"invoiceId"`
	IsInvoice     bool     `json:"es_factura"`
	Summary       string   `json:"resumen,omitempty"`
	TotalAmount   *float64 `json:"monto_total,omitempty"`
	Currency      string   `json:"moneda,omitempty"`
	IssuerRUC     string   `json:"ruc_emisor,omitempty"`
	IssuerName    string   `json:"razon_social_emisor,omitempty"`
	IssueDate     string   `json:"fecha_emision,omitempty"`
	DueDate       string   `json:"fecha_vencimiento,omitempty"`
	InvoiceNumber string   `json:"numero_factura,omitempty"`
	Concept       string   `json:"concepto,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
}

// SupplierProfile is the editable part of a supplier record.
type SupplierProfile struct {
	RUC                 string `json:"ruc,omitempty"`
	BusinessName        string `json:"razonSocial,omitempty"`
	LegalRepresentative string `json:"representanteLegal,omitempty"`
	Address             string `json:"direccion,omitempty"`
	Status              string `json:"status,omitempty"`
}

// Supplier is a registered portal user as seen by admins.
type Supplier struct {
	UID         string          `json:"uid"`
	Email       string          `json:"email"`
	DisplayName string          `json:"displayName,omitempty"`
	Role        string          `json:"role,omitempty"`
	CreatedAt   int64           `json:"createdAt,omitempty"`
	Profile     SupplierProfile `json:"profile"`
}

// SupplierList is the /suppliers response envelope.
type SupplierList struct {
	Suppliers []Supplier `json:"suppliers"`
	Total     int        `json:"total"`
}

// Profile is the signed-in user's own record.
type Profile struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
	SupplierProfile
}

// DashboardStats summarizes invoice volume for the admin dashboard.
type DashboardStats struct {
	TotalInvoices  int            `json:"total_invoices"`
	ByStatus       map[string]int `json:"by_status"`
	ProcessedCount int            `json:"processed_count"`
	TotalSuppliers int            `json:"total_suppliers"`
	RecentInvoices []Invoice      `json:"recent_invoices"`
}

// ListInvoices returns the invoices visible to the current session: their own
// for suppliers, everyone's for admins. The scoping is the backend's call.
func (c *Client) ListInvoices(ctx context.Context) (InvoiceList, error) {
	var out InvoiceList
	if err := c.Get(ctx, "/invoices", &out); err != nil {
		return InvoiceList{}, err
	}
	return out, nil
}

// UploadInvoice sends a PDF as multipart form-data under the "file" field.
func (c *Client) UploadInvoice(ctx context.Context, filename string, pdf io.Reader) (UploadResult, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return UploadResult{}, &RequestError{Status: http.StatusBadRequest, Message: "only PDF files are accepted"}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return UploadResult{}, fmt.Errorf("read invoice file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	var out UploadResult
	if err := c.do(ctx, http.MethodPost, "/invoices", &buf, mw.FormDataContentType(), &out); err != nil {
		return UploadResult{}, err
	}
	return out, nil
}

// ProcessInvoice asks the backend to run extraction on an uploaded invoice.
func (c *Client) ProcessInvoice(ctx context.Context, invoiceID string) (ProcessResult, error) {
	var out ProcessResult
	if err := c.Post(ctx, "/invoices/"+url.PathEscape(invoiceID)+"/process", nil, &out); err != nil {
		return ProcessResult{}, err
	}
	return out, nil
}

// UpdateInvoiceStatus sets an invoice's payment status. Admin only; a
// non-admin session gets a RequestError from the backend, not a logout.
func (c *Client) UpdateInvoiceStatus(ctx context.Context, invoiceID, status string) error {
	in := map[string]string{"status": status}
	return c.Patch(ctx, "/invoices/"+url.PathEscape(invoiceID)+"/status", in, nil)
}

// ListSuppliers returns all registered suppliers. Admin only.
func (c *Client) ListSuppliers(ctx context.Context) (SupplierList, error) {
	var out SupplierList
	if err := c.Get(ctx, "/suppliers", &out); err != nil {
		return SupplierList{}, err
	}
	return out, nil
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var out Profile
	if err := c.Get(ctx, "/profile", &out); err != nil {
		return Profile{}, err
	}
	return out, nil
}

// SaveProfile updates the signed-in user's profile fields.
func (c *Client) SaveProfile(ctx context.Context, p SupplierProfile) error {
	return c.Put(ctx, "/profile", p, nil)
}

// DashboardStats returns aggregate invoice statistics. Admin only.
func (c *Client) DashboardStats(ctx context.Context) (DashboardStats, error) {
	var out DashboardStats
	if err := c.Get(ctx, "/dashboard/stats", &out); err != nil {
		return DashboardStats{}, err
	}
	return out, nil
}

// SetUserRole assigns a role to a user. Admin only.
func (c *Client) SetUserRole(ctx context.Context, uid, role string) error {
	in := map[string]string{"uid": uid, "role": role}
	return c.Post(ctx, "/admin/set-role", in, nil)
}
