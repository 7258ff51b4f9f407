package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"taimako-widget/config"
)

// The bootstrap loader runs in the host page's own JavaScript context. It is
// the only piece of the system allowed to touch the host DOM, and a failure
// here must never break the embedding page: every abort path is a logged
// no-op with no visible widget.
const loaderScript = `(function () {
  const API_BASE_URL = "__API_BASE_URL__";
  const WIDGET_BASE_URL = "__WIDGET_BASE_URL__";

  // Find script with data-widget-id
  let currentScript = null;
  for (const script of document.getElementsByTagName("script")) {
    if (script.dataset.widgetId) {
      currentScript = script;
      break;
    }
  }

  if (!currentScript) {
    console.error("Taimako.AI Widget: Missing data-widget-id on script tag.");
    return;
  }

  const widgetId = currentScript.dataset.widgetId;

  // Main container (launcher + iframe)
  const container = document.createElement("div");
  container.id = "taimako-widget-container";
  container.style.position = "fixed";
  container.style.bottom = "20px";
  container.style.right = "20px";
  container.style.zIndex = "999999";
  container.style.fontFamily = "-apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif";
  container.style.pointerEvents = "none";
  document.body.appendChild(container);

  // Fetch widget config
  fetch(API_BASE_URL + "/widgets/config/" + widgetId)
    .then(res => {
      if (!res.ok) throw new Error("Failed to load widget config");
      return res.json();
    })
    .then(config => {
      if (config.is_active === false) {
        console.log("Taimako.AI Widget: Widget is currently disabled.");
        return;
      }
      initWidget(config);
    })
    .catch(err => console.error("Taimako.AI Widget Error:", err));

  function initWidget(config) {
    const primaryColor = config.primary_color || "#000000";

    // Launcher button
    const button = document.createElement("div");
    button.style.width = "60px";
    button.style.height = "60px";
    button.style.borderRadius = "50%";
    button.style.backgroundColor = primaryColor;
    button.style.boxShadow = "0 4px 20px rgba(0,0,0,0.2)";
    button.style.cursor = "pointer";
    button.style.display = "flex";
    button.style.alignItems = "center";
    button.style.justifyContent = "center";
    button.style.transition = "all 0.2s ease";
    button.style.pointerEvents = "auto";

    const iconImg = document.createElement("img");
    iconImg.src = config.icon_url || "https://api.iconify.design/lucide:message-circle.svg?color=white";
    iconImg.style.width = "32px";
    iconImg.style.height = "32px";
    iconImg.alt = "Chat";
    button.appendChild(iconImg);
    container.appendChild(button);

    // Iframe container, hidden until toggled open
    const iframeContainer = document.createElement("div");
    iframeContainer.style.width = "380px";
    iframeContainer.style.height = "580px";
    iframeContainer.style.maxHeight = "calc(100dvh - 100px)";
    iframeContainer.style.maxWidth = "calc(100vw - 40px)";
    iframeContainer.style.position = "absolute";
    iframeContainer.style.bottom = "80px";
    iframeContainer.style.right = "0";
    iframeContainer.style.borderRadius = "16px";
    iframeContainer.style.boxShadow = "0 12px 40px rgba(0,0,0,0.25)";
    iframeContainer.style.overflow = "hidden";
    iframeContainer.style.opacity = "0";
    iframeContainer.style.visibility = "hidden";
    iframeContainer.style.transform = "translateY(20px) translateZ(0)";
    iframeContainer.style.transition = "opacity 0.25s ease, transform 0.25s ease, visibility 0s linear 0.25s";
    iframeContainer.style.pointerEvents = "auto";
    iframeContainer.style.contain = "layout style paint";
    iframeContainer.style.backfaceVisibility = "hidden";

    // Capture context for the frame; read once at construction time
    const timezone = Intl.DateTimeFormat().resolvedOptions().timeZone;
    const referrer = document.referrer;
    const locationInfo = window.location.href;

    const params = new URLSearchParams();
    if (referrer) params.append("ref", referrer);
    params.append("loc", locationInfo);
    params.append("tz", timezone);

    const iframe = document.createElement("iframe");
    iframe.src = WIDGET_BASE_URL + "/widget/" + widgetId + "?" + params.toString();
    iframe.title = "Taimako.AI Chat Widget";
    iframe.allow = "clipboard-write";
    iframe.style.width = "100%";
    iframe.style.height = "100%";
    iframe.style.border = "none";
    iframe.style.display = "block";
    iframe.style.backgroundColor = "transparent";
    iframe.style.touchAction = "manipulation";
    iframeContainer.appendChild(iframe);

    container.appendChild(iframeContainer);

    let isOpen = false;

    const openWidget = () => {
      isOpen = true;
      iframeContainer.style.opacity = "1";
      iframeContainer.style.visibility = "visible";
      iframeContainer.style.transform = "translateY(0) translateZ(0)";
      iframeContainer.style.transition = "opacity 0.25s ease, transform 0.25s ease, visibility 0s linear 0s";

      // Triple-redundant focus handoff: sandboxed iframes cannot reliably
      // take focus when revealed, so after a settle delay we focus the
      // element, focus the content window, and post the typed focus message.
      setTimeout(() => {
        iframe.focus();
        if (iframe.contentWindow) {
          iframe.contentWindow.focus();
        }
        iframe.contentWindow?.postMessage({ type: "WIDGET_FOCUS" }, "*");
      }, 200);
    };

    const closeWidget = () => {
      isOpen = false;
      iframeContainer.style.opacity = "0";
      iframeContainer.style.transform = "translateY(20px) translateZ(0)";
      iframeContainer.style.transition = "opacity 0.25s ease, transform 0.25s ease, visibility 0s linear 0.25s";
      setTimeout(() => {
        iframeContainer.style.visibility = "hidden";
      }, 250);
    };

    button.addEventListener("click", (e) => {
      e.stopPropagation();
      if (isOpen) closeWidget();
      else openWidget();
    });

    // Close when clicking outside the widget root
    document.addEventListener("click", (e) => {
      if (isOpen && !container.contains(e.target)) {
        closeWidget();
      }
    });

    iframeContainer.addEventListener("click", (e) => {
      e.stopPropagation();
    });
  }
})();`

// LoaderScript serves the embeddable bootstrap script with the deployment's
// base URLs substituted in.
func LoaderScript(cfg *config.Config) fiber.Handler {
	replacer := strings.NewReplacer(
		"__API_BASE_URL__", cfg.APIBaseURL,
		"__WIDGET_BASE_URL__", cfg.WidgetBaseURL,
	)
	script := []byte(replacer.Replace(loaderScript))

	return func(c *fiber.Ctx) error {
		c.Set("Content-Type", "application/javascript")
		c.Set("Cache-Control", "public, max-age=300")
		return c.Send(script)
	}
}
