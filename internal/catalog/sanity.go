package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrProductNotFound = errors.New("product not found")

const productFields = `_id, name, "slug": slug.current, price, image, gallery, youtube`

var (
	productsQuery      = `*[_type == "product"] {` + productFields + `}`
	productBySlugQuery = `*[_type == "product" && slug.current == $slug][0] {` + productFields + `}`
	productByIDQuery   = `*[_type == "product" && _id == $id][0] {` + productFields + `}`
)

type SanityConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	// BaseURL overrides https://<project>.api.sanity.io
	BaseURL string
}

// SanityClient reads products from the Sanity HTTP query API.
type SanityClient struct {
	cfg     SanityConfig
	baseURL string
	http    *http.Client
}

func NewSanityClient(cfg SanityConfig, httpClient *http.Client) *SanityClient {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	return &SanityClient{
		cfg:     cfg,
		baseURL: strings.TrimRight(base, "/"),
		http:    httpClient,
	}
}

type sanityAsset struct {
	Ref string `json:"_ref"`
}

type sanityImage struct {
	Asset *sanityAsset `json:"asset"`
}

type sanityProduct struct {
	ID      string          `json:"_id"`
	Name    string          `json:"name"`
	Slug    string          `json:"slug"`
	Price   decimal.Decimal `json:"price"`
	Image   *sanityImage    `json:"image"`
	Gallery []sanityImage   `json:"gallery"`
	YouTube string          `json:"youtube"`
}

func (c *SanityClient) Products(ctx context.Context) ([]domain.Product, error) {
	var raw []sanityProduct
	if err := c.query(ctx, productsQuery, nil, &raw); err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(raw))
	for i := range raw {
		products = append(products, c.toDomain(&raw[i]))
	}
	return products, nil
}

func (c *SanityClient) ProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return c.one(ctx, productBySlugQuery, map[string]string{"slug": slug})
}

func (c *SanityClient) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return c.one(ctx, productByIDQuery, map[string]string{"id": id})
}

func (c *SanityClient) one(ctx context.Context, query string, params map[string]string) (*domain.Product, error) {
	var raw *sanityProduct
	if err := c.query(ctx, query, params, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrProductNotFound
	}
	p := c.toDomain(raw)
	return &p, nil
}

func (c *SanityClient) query(ctx context.Context, query string, params map[string]string, result any) error {
	q := url.Values{}
	q.Set("query", query)
	for k, v := range params {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode param %s: %w", k, err)
		}
		q.Set("$"+k, string(encoded))
	}
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s",
		c.baseURL, c.cfg.APIVersion, url.PathEscape(c.cfg.Dataset), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build sanity request: %w", err)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sanity query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sanity query returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode sanity response: %w", err)
	}
	if len(envelope.Result) == 0 {
		return errors.New("sanity response has no result")
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("decode sanity result: %w", err)
	}
	return nil
}

func (c *SanityClient) toDomain(p *sanityProduct) domain.Product {
	out := domain.Product{
		ID:      p.ID,
		Name:    p.Name,
		Slug:    p.Slug,
		Price:   p.Price,
		YouTube: p.YouTube,
	}
	if p.Image != nil && p.Image.Asset != nil {
		out.Image = c.ImageURL(p.Image.Asset.Ref)
	}
	for _, img := range p.Gallery {
		if img.Asset != nil {
			out.Gallery = append(out.Gallery, c.ImageURL(img.Asset.Ref))
		}
	}
	return out
}

// ImageURL turns an asset reference such as image-abc123-800x600-jpg into
// its CDN URL. Unrecognized references yield an empty string.
func (c *SanityClient) ImageURL(ref string) string {
	parts := strings.Split(ref, "-")
	if len(parts) != 4 || parts[0] != "image" {
		return ""
	}
	return fmt.Sprintf("https://cdn.sanity.io/images/%s/%s/%s-%s.%s",
		c.cfg.ProjectID, c.cfg.Dataset, parts[1], parts[2], parts[3])
}
