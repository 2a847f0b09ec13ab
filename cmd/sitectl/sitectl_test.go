package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yabood/yabood/internal/auth"
	"github.com/yabood/yabood/internal/config"
	"github.com/yabood/yabood/internal/model"
	"github.com/yabood/yabood/internal/search"
	"github.com/yabood/yabood/internal/vcs"
	"github.com/yabood/yabood/internal/vcs/vcstest"
)

const testConfigYAML = `logging:
  level: error
github:
  token: test-token
  owner: yabood
  repo: site
auth:
  secret: sitectl-secret
  admin_email_domain: yabood.com
`

func writeConfig(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(testConfigYAML), 0o644))
	return p
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	err := root.Execute()
	return out.String(), err
}

func withHost(t *testing.T, host vcs.Host) {
	t.Helper()
	prev := newHost
	newHost = func(*config.Config) (vcs.Host, error) { return host, nil }
	t.Cleanup(func() { newHost = prev })
}

func TestGenerateConfig(t *testing.T) {
	out, err := run(t, "", "generate-config", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, configHeader))
	assert.Contains(t, out, "content_root: src/content")
	assert.Contains(t, out, "trunk: main")

	p := filepath.Join(t.TempDir(), "example.yaml")
	_, err = run(t, "", "generate-config", p)
	require.NoError(t, err)
	written, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(written), "syntax_theme: gruvbox")
}

func TestKeygenAndSign(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "priv.pem")
	pub := filepath.Join(dir, "pub.pem")

	_, err := run(t, "", "keygen", "--private", priv, "--public", pub)
	require.NoError(t, err)

	pubPEM, err := os.ReadFile(pub)
	require.NoError(t, err)
	tokens, err := auth.NewJWTProvider("secret", 0, "auth_token")
	require.NoError(t, err)
	operator, err := auth.NewEd25519AuthProvider(string(pubPEM), auth.OperatorSignatureHeader, auth.OperatorUser, tokens)
	require.NoError(t, err)

	challenge := base64.StdEncoding.EncodeToString(operator.GetChallenge())

	t.Run("argument", func(t *testing.T) {
		out, err := run(t, "", "sign", "--key", priv, challenge)
		require.NoError(t, err)

		sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out))
		require.NoError(t, err)
		assert.True(t, operator.Verify(sig))
	})

	t.Run("interactive", func(t *testing.T) {
		next := base64.StdEncoding.EncodeToString(operator.GetChallenge())
		out, err := run(t, "not base64!\n\n"+next+"\nquit\n", "sign", "-k", priv)
		require.NoError(t, err)
		assert.Contains(t, out, "Error: invalid base64")
		assert.Contains(t, out, "Signature: ")
	})

	t.Run("bad argument", func(t *testing.T) {
		_, err := run(t, "", "sign", "--key", priv, "%%%")
		assert.Error(t, err)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := run(t, "", "sign", "--key", filepath.Join(dir, "nope.pem"), challenge)
		assert.Error(t, err)
	})
}

func TestMintToken(t *testing.T) {
	cfgPath := writeConfig(t)
	tokens, err := auth.NewJWTProvider("sitectl-secret", 0, "auth_token")
	require.NoError(t, err)

	testCases := []struct {
		name     string
		args     []string
		wantRole model.Role
	}{
		{"role from admin domain", []string{"--email", "me@yabood.com"}, model.RoleAdmin},
		{"role from other domain", []string{"--email", "me@example.com"}, model.RoleUser},
		{"explicit role", []string{"--email", "me@example.com", "--role", "admin"}, model.RoleAdmin},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"mint-token", "--config", cfgPath, "--id", "42"}, tc.args...)
			out, err := run(t, "", args...)
			require.NoError(t, err)

			claims, err := tokens.Parse(strings.TrimSpace(out))
			require.NoError(t, err)
			assert.Equal(t, model.UserID("42"), claims.User().ID)
			assert.Equal(t, tc.wantRole, claims.User().Role)
		})
	}

	_, err = run(t, "", "mint-token", "--config", cfgPath, "--role", "root")
	assert.Error(t, err)
}

func TestExportSearch(t *testing.T) {
	cfgPath := writeConfig(t)
	dir := t.TempDir()
	blog := filepath.Join(dir, "src", "content", "blog")
	require.NoError(t, os.MkdirAll(blog, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blog, "one.mdx"),
		[]byte("---\ntitle: One\npubDate: 2024-01-01\ntags: [go]\n---\nBody\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(blog, "two.mdx"),
		[]byte("---\ntitle: Two\npubDate: 2024-02-01\ndraft: true\n---\nBody\n"), 0o644))

	out := filepath.Join(t.TempDir(), "search.json")
	_, err := run(t, "", "export-search", "--config", cfgPath, "--dir", dir, "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var corpus search.Corpus
	require.NoError(t, json.Unmarshal(data, &corpus))
	require.Len(t, corpus.BlogPosts, 1)
	assert.Equal(t, "One", corpus.BlogPosts[0].Title)
	assert.Empty(t, corpus.Projects)

	stdout, err := run(t, "", "export-search", "--config", cfgPath, "--dir", dir, "--drafts")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"Two"`)
}

type recordingBucket struct {
	key      string
	encoding string
	body     []byte
}

func (b *recordingBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b.key = aws.ToString(in.Key)
	b.encoding = aws.ToString(in.ContentEncoding)
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestExportSearchToBucket(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(testConfigYAML+"export:\n  bucket: site\n  compress: zstd\n"), 0o644))

	dir := t.TempDir()
	blog := filepath.Join(dir, "src", "content", "blog")
	require.NoError(t, os.MkdirAll(blog, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blog, "one.mdx"),
		[]byte("---\ntitle: One\npubDate: 2024-01-01\n---\nBody\n"), 0o644))

	bucket := &recordingBucket{}
	prev := newS3Client
	newS3Client = func(context.Context, config.ExportConfig) (search.PutObjectAPI, error) { return bucket, nil }
	t.Cleanup(func() { newS3Client = prev })

	testCases := []struct {
		name     string
		args     []string
		wantKey  string
		encoding string
	}{
		{"configured codec", nil, "search-data.json.zst", "zstd"},
		{"gzip flag", []string{"--compress", "gzip"}, "search-data.json.gz", "gzip"},
		{"no compression", []string{"--compress", "none"}, "search-data.json", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"export-search", "--config", p, "--dir", dir, "--s3"}, tc.args...)
			out, err := run(t, "", args...)
			require.NoError(t, err)
			assert.Contains(t, out, "s3://site/"+tc.wantKey)
			assert.Equal(t, tc.wantKey, bucket.key)
			assert.Equal(t, tc.encoding, bucket.encoding)

			raw := bucket.body
			if tc.encoding == "gzip" {
				zr, err := gzip.NewReader(bytes.NewReader(bucket.body))
				require.NoError(t, err)
				raw, err = io.ReadAll(zr)
				require.NoError(t, err)
			}
			if tc.encoding == "" || tc.encoding == "gzip" {
				var corpus search.Corpus
				require.NoError(t, json.Unmarshal(raw, &corpus))
				require.Len(t, corpus.BlogPosts, 1)
				assert.Equal(t, "One", corpus.BlogPosts[0].Title)
			}
		})
	}

	_, err := run(t, "", "export-search", "--config", p, "--dir", dir, "--s3", "--compress", "brotli")
	assert.Error(t, err)
}

func TestDrafts(t *testing.T) {
	cfgPath := writeConfig(t)
	host := vcstest.New("main")
	host.Seed("main", "src/content/blog/hello.mdx", "---\ntitle: Hello\n---\nold line\n")
	host.Seed("draft/hello", "src/content/blog/hello.mdx", "---\ntitle: Hello\n---\nnew line\n")
	host.Seed("draft/fresh", "src/content/blog/fresh.mdx", "---\ntitle: Fresh\n---\n")
	withHost(t, host)

	t.Run("list", func(t *testing.T) {
		out, err := run(t, "", "drafts", "list", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "COLLECTION")
		assert.Contains(t, out, "draft/hello")
		assert.Contains(t, out, "Fresh")
	})

	t.Run("diff against trunk", func(t *testing.T) {
		out, err := run(t, "", "drafts", "diff", "blog", "hello", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "-old line")
		assert.Contains(t, out, "+new line")
	})

	t.Run("diff of a new entry", func(t *testing.T) {
		out, err := run(t, "", "drafts", "diff", "blog", "fresh", "--config", cfgPath, "--branch", "fresh")
		require.NoError(t, err)
		assert.Contains(t, out, "+title: Fresh")
	})

	t.Run("no draft", func(t *testing.T) {
		host.Seed("main", "src/content/blog/plain.mdx", "---\ntitle: Plain\n---\n")
		out, err := run(t, "", "drafts", "diff", "blog", "plain", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "No draft branch holds this entry.")
	})

	t.Run("read-only collection", func(t *testing.T) {
		_, err := run(t, "", "drafts", "diff", "projects", "x", "--config", cfgPath)
		assert.Error(t, err)
	})
}
