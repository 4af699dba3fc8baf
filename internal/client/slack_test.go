package client

import "testing"

func TestToSlackMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bold-only",
			input: "The origin is **unreachable** from every probe region.",
			want:  "The origin is *unreachable* from every probe region.",
		},
		{
			name:  "inline-code-protected",
			input: "Search `**/*.conf` for the stale upstream and reload **nginx**.",
			want:  "Search `**/*.conf` for the stale upstream and reload *nginx*.",
		},
		{
			name:  "code-block-protected",
			input: "```sh\nfind /etc/nginx -name '**.conf'\n```\n**Fix**: renew the certificate",
			want:  "```sh\nfind /etc/nginx -name '**.conf'\n```\n*Fix*: renew the certificate",
		},
		{
			name:  "mixed-inline-and-bold",
			input: "**Expired cert** reported by `openssl s_client -connect example.com:443 **`",
			want:  "*Expired cert* reported by `openssl s_client -connect example.com:443 **`",
		},
		{
			name:  "heading-converted",
			input: "### 1) 원인 요약 (Root cause)\nThe A record points at a decommissioned load balancer.",
			want:  "*1) 원인 요약 (Root cause)*\nThe A record points at a decommissioned load balancer.",
		},
		{
			name:  "heading-protected-in-code-block",
			input: "```\n# /etc/hosts override\n127.0.0.1 example.com\n```\n**verified**",
			want:  "```\n# /etc/hosts override\n127.0.0.1 example.com\n```\n*verified*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toSlackMarkdown(tt.input); got != tt.want {
				t.Fatalf("toSlackMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}
