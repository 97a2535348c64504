package httpapi

import "fmt"

// popupSuccessHTML renders the page served at the end of the OAuth popup
// flow. It hands the session token to the opener window via postMessage,
// targeted at the configured frontend origin, then closes itself.
func popupSuccessHTML(token, origin string) string {
	return fmt.Sprintf(popupTemplate,
		"Authentication Complete",
		"DISCORD_OAUTH_SUCCESS",
		fmt.Sprintf("token: %q", token),
		origin,
		"Authentication successful. Please close this window.",
		"Authentication successful. This window should close automatically.",
	)
}

func popupErrorHTML(errMsg, origin string) string {
	return fmt.Sprintf(popupTemplate,
		"Authentication Error",
		"DISCORD_OAUTH_ERROR",
		fmt.Sprintf("error: %q", errMsg),
		origin,
		"Authentication failed. Please close this window and try again.",
		"Authentication failed. Please close this window and try again.",
	)
}

const popupTemplate = `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
  <script>
    if (window.opener) {
      window.opener.postMessage({
        type: '%s',
        %s
      }, '%s');
      setTimeout(function() {
        window.close();
      }, 2000);
    } else {
      document.body.innerHTML = '<p>%s</p>';
    }
  </script>
  <p>%s</p>
</body>
</html>
`
