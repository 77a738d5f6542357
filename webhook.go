package ghpress

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature recomputes the HMAC-SHA256 of the raw, unparsed request
// body and compares it to the "sha256=<hex>" header value in constant
// time. A missing signature or an unconfigured secret is false, never an
// error.
func VerifySignature(body []byte, signatureHeader, secret string) bool {
	if secret == "" || !strings.HasPrefix(signatureHeader, signaturePrefix) {
		return false
	}
	provided, err := hex.DecodeString(signatureHeader[len(signaturePrefix):])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// PushEvent is the subset of a push payload the verifier acts on.
type PushEvent struct {
	Ref     string       `json:"ref"`
	Commits []PushCommit `json:"commits"`
}

// PushCommit lists the paths a single commit touched.
type PushCommit struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
}

// TargetsBranch reports whether the push landed on the given branch.
func (e PushEvent) TargetsBranch(branch string) bool {
	return e.Ref == "refs/heads/"+branch
}

// ChangedContentPaths returns the deduplicated set of content-file paths
// the push touched, in first-seen order.
func (e PushEvent) ChangedContentPaths() []string {
	seen := make(map[string]struct{})
	var paths []string
	add := func(list []string) {
		for _, p := range list {
			if !strings.HasPrefix(p, contentDir+"/") || !isContentFile(p) {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	for _, c := range e.Commits {
		add(c.Added)
		add(c.Modified)
		add(c.Removed)
	}
	return paths
}

// InvalidationTargets maps changed content paths to the externally
// cacheable URLs that must be purged: each post page, the listing page and
// the home page. Pure; actually purging is someone else's job.
func InvalidationTargets(changedPaths []string) []string {
	if len(changedPaths) == 0 {
		return nil
	}
	targets := make([]string, 0, len(changedPaths)+2)
	for _, p := range changedPaths {
		targets = append(targets, "/blog/"+SlugFromPath(p))
	}
	return append(targets, "/blog", "/")
}
