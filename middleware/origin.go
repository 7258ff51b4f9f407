package middleware

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"taimako-widget/config"
	"taimako-widget/services"
)

// RequireAllowedOrigin builds a middleware that rejects widget API calls
// whose Origin (or Referer) does not match the widget's whitelisted domains.
// The deployment's own origins always pass: the embedded frame is served
// from the widget application, so its requests carry that origin rather
// than the embedding site's. Widgets with no whitelist accept any origin;
// requests with no origin header pass, since non-browser clients
// legitimately omit it.
func RequireAllowedOrigin(cfg *config.Config) fiber.Handler {
	self := selfOrigins(cfg.WidgetBaseURL, cfg.APIBaseURL)

	return func(c *fiber.Ctx) error {
		widgetID := c.Params("widgetID")
		if widgetID == "" {
			return c.Next()
		}

		widget, err := services.GetWidgetByPublicID(c.Context(), widgetID)
		if err != nil {
			slog.Error("Failed to load widget for origin check", "error", err, "widgetID", widgetID)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to process request",
			})
		}
		if widget == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Widget not found",
			})
		}

		if len(widget.WhitelistedDomains) == 0 {
			return c.Next()
		}

		origin := c.Get("Origin")
		if origin == "" {
			origin = c.Get("Referer")
		}
		if origin == "" {
			return c.Next()
		}

		if OriginAllowed(origin, self) {
			return c.Next()
		}

		if !OriginAllowed(origin, widget.WhitelistedDomains) {
			slog.Warn("Rejected widget request from non-whitelisted origin",
				"widgetID", widgetID,
				"origin", origin,
			)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Origin not allowed for this widget",
			})
		}

		return c.Next()
	}
}

// selfOrigins extracts the hosts of the deployment's own base URLs.
func selfOrigins(baseURLs ...string) []string {
	hosts := make([]string, 0, len(baseURLs))
	for _, raw := range baseURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Hostname())
	}
	return hosts
}

// OriginAllowed reports whether the origin's host matches one of the
// whitelisted domains, either exactly or as a subdomain.
func OriginAllowed(origin string, domains []string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	host = strings.ToLower(host)

	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
