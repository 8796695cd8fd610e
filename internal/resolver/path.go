package resolver

// splitPath breaks path into non-empty components, accepting either `\`
// or `/` as a separator (mixed allowed); two consecutive separators
// collapse to a single boundary (§4.7 "empty component is ignored").
func splitPath(path string) []string {
	var comps []string
	start := -1
	for i := 0; i <= len(path); i++ {
		atSep := i == len(path) || path[i] == '\\' || path[i] == '/'
		if atSep {
			if start >= 0 {
				comps = append(comps, path[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return comps
}

func isRootRelative(path string) bool {
	return len(path) > 0 && (path[0] == '\\' || path[0] == '/')
}

// ASCIIFoldEqual compares two strings case-insensitively over ASCII only;
// bytes outside ASCII are compared literally (§4.6, §4.7). Exported so
// pkg/creg can apply the same comparison to value names.
func ASCIIFoldEqual(a, b string) bool {
	return asciiFoldEqual(a, b)
}

func asciiFoldEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// FindPath resolves path starting at from (or at the root if path has a
// leading separator, or if from is nil). It returns (nil, nil) if any
// component is not found.
func (c *Cache) FindPath(from *Key, path string) (*Key, error) {
	cur := from
	if cur == nil || isRootRelative(path) {
		root, err := c.Root()
		if err != nil {
			return nil, err
		}
		if root == nil {
			return nil, nil
		}
		cur = root
	}

	for _, comp := range splitPath(path) {
		if c.checkAbort() {
			return nil, ErrAbort
		}
		next, err := c.findChildByName(cur, comp)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, nil
		}
		cur = next
	}
	return cur, nil
}

func (c *Cache) findChildByName(parent *Key, name string) (*Key, error) {
	it := c.Children(parent)
	for {
		k, err := it.Next()
		if err != nil {
			return nil, err
		}
		if k == nil {
			return nil, nil
		}
		if asciiFoldEqual(k.Name(), name) {
			return k, nil
		}
	}
}
