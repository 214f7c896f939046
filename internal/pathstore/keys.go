package pathstore

import (
	"net/url"
	"strings"
)

// Root is the prefix every published key lives under.
const Root = "mets"

// DocumentKey is the prefix for everything published about docID.
func DocumentKey(docID string) string {
	return Root + "/documents/" + url.PathEscape(docID)
}

// MetaKey holds the document summary.
func MetaKey(docID string) string {
	return DocumentKey(docID) + "/meta"
}

// TreeKey is the node for one directory or file of docID's physical structure.
// Each segment of localPath is escaped on its own so the hierarchy survives.
func TreeKey(docID, localPath string) string {
	segs := strings.FieldsFunc(localPath, func(r rune) bool { return r == '/' })
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return DocumentKey(docID) + "/tree/" + strings.Join(segs, "/")
}

// DigestPrefix is the parent of every DigestKey for digest.
func DigestPrefix(digest string) string {
	return Root + "/by_digest/" + url.PathEscape(strings.ToLower(digest))
}

// DigestKey indexes docID under the sha256 digest of one of its files.
func DigestKey(digest, docID string) string {
	return DigestPrefix(digest) + "/" + url.PathEscape(docID)
}
