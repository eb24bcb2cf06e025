package xbis

import "github.com/jibx/xbis/internal/nsscope"

// Namespace is a (prefix, URI) pair, interned once per Writer or Reader
// instance and thereafter referred to by pointer identity (spec.md §3).
// Two namespaces are pre-interned in every fresh instance: the empty
// namespace at handle 0 and the XML namespace at handle 1.
type Namespace = nsscope.Namespace

// XMLNamespaceURI is the URI of the pre-interned XML namespace.
const XMLNamespaceURI = "http://www.w3.org/XML/1998/namespace"

// XMLNamespacePrefix is the prefix of the pre-interned XML namespace.
const XMLNamespacePrefix = "xml"
