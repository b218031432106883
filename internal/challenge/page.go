package challenge

import (
	"fmt"
	"html"
)

// pageTemplate is the interstitial served to browsers without a verified
// cookie. The inline script performs the headless checks (webdriver flag,
// canvas render, zero-width viewport) and posts the fingerprint back. The
// two %s slots take the attribute-escaped nonce and return target.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<title>Verifying your browser&hellip;</title>
<style>
  body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: #f7f7f9; color: #1a1a2e; display: flex; min-height: 100vh; align-items: center; justify-content: center; }
  .card { text-align: center; padding: 2rem; }
  .spinner { width: 40px; height: 40px; margin: 0 auto 1.25rem; border: 4px solid #e3e3e8; border-top-color: #1a1a2e; border-radius: 50%%; animation: spin 0.9s linear infinite; }
  @keyframes spin { to { transform: rotate(360deg); } }
  noscript p { color: #b00020; }
</style>
</head>
<body>
<div class="card">
  <div class="spinner" aria-hidden="true"></div>
  <div role="status" aria-live="polite">Checking your browser before accessing this site.</div>
  <noscript><p>JavaScript is required to continue. Please enable it and reload the page.</p></noscript>
</div>
<form id="cf" method="POST" action="/__challenge/verify" style="display:none">
  <input type="hidden" name="nonce" value="%s">
  <input type="hidden" name="return_to" value="%s">
  <input type="hidden" name="fp" id="fp" value="">
</form>
<script>
(function () {
  if (navigator.webdriver) { return; }
  var c = document.createElement('canvas');
  c.width = 200;
  c.height = 50;
  var ctx = c.getContext('2d');
  if (!ctx) { return; }
  ctx.textBaseline = 'top';
  ctx.font = '18px Arial';
  ctx.fillStyle = '#1a1a2e';
  ctx.fillText('verify', 10, 30);
  var data = c.toDataURL();
  if (data.length < 100 || window.innerWidth === 0) { return; }
  document.getElementById('fp').value = data.slice(22, 86);
  document.getElementById('cf').submit();
})();
</script>
</body>
</html>
`

// Page renders the challenge interstitial for the given nonce and return
// target. Both values are escaped for the hidden form attributes.
func Page(nonce, returnTo string) string {
	return fmt.Sprintf(pageTemplate, html.EscapeString(nonce), html.EscapeString(returnTo))
}
