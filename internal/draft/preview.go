package draft

import (
	"net/url"
	"strings"

	"github.com/yabood/yabood/internal/config"
)

// PreviewURL builds the human-facing preview link for path on branch. Requests
// served from localhost link back to the same origin; everything else goes to
// the deployment's per-branch preview host.
func PreviewURL(deploy config.DeployConfig, requestBase, branch, path string) string {
	if u, err := url.Parse(requestBase); err == nil && u.Host != "" {
		switch u.Hostname() {
		case "localhost", "127.0.0.1":
			return u.Scheme + "://" + u.Host + path
		}
	}

	base := strings.NewReplacer(
		"{project}", deploy.ProjectName,
		"{branch}", strings.ReplaceAll(branch, "/", "-"),
	).Replace(deploy.PreviewURLTemplate)
	return strings.TrimSuffix(base, "/") + path
}

func (m *Manager) previewURL(requestBase, branch, path string) string {
	return PreviewURL(m.cfg.Deploy, requestBase, branch, path)
}
