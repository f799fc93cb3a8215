// Package config implements the two-phase configuration resolver:
// load and inline the XML project document, substitute "{key}" tokens,
// evaluate "if" guards, and assemble a resolved model.Project.
package config

import (
	"path/filepath"

	"github.com/beevik/etree"

	"github.com/cbld/cbld/internal/diag"
)

// loadDocument reads path into an etree document. etree preserves
// element order, attributes and text verbatim, which is why it was
// picked over encoding/xml's struct-tag binding (see DESIGN.md).
func loadDocument(path string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, diag.IOError(path, err)
	}
	return doc, nil
}

// inlineIncludes walks el's children looking for <include> elements,
// recursively splicing in the referenced file's children in place of
// the <include> itself. chain tracks the absolute paths of includes
// currently being expanded, to detect cycles; baseDir is the directory
// <include> paths are relative to.
//
// subs receives every <dict> element encountered along the way
// (both the include's own top-level dicts and any nested ones spliced
// in transitively) so the caller can fold them into the substitution
// map at the correct point: immediately after splicing, before later
// siblings are processed.
func inlineIncludes(el *etree.Element, baseDir string, subs *substState, chain map[string]bool) error {
	children := el.ChildElements()
	i := 0
	for _, child := range children {
		if child.Tag != "include" {
			i++
			continue
		}

		guard := child.SelectAttrValue("if", "")
		if guard != "" {
			ok, err := evalGuardRaw(guard, subs)
			if err != nil {
				return err
			}
			if !ok {
				el.RemoveChild(child)
				continue
			}
		}

		relPath := child.SelectAttrValue("path", "")
		if relPath == "" {
			return diag.ConfigErrorf("<include>", "missing required \"path\" attribute")
		}
		absPath, err := filepath.Abs(filepath.Join(baseDir, relPath))
		if err != nil {
			return diag.IOError(relPath, err)
		}
		if chain[absPath] {
			return diag.ConfigErrorf("<include path=\""+relPath+"\">", "include cycle detected")
		}

		incDoc, err := loadDocument(absPath)
		if err != nil {
			return err
		}
		root := incDoc.Root()
		if root == nil {
			return diag.ConfigErrorf(absPath, "include file has no root element")
		}
		if root.Tag != "pyInc" {
			return diag.ConfigErrorf(absPath, "include root must be <pyInc>, got <%s>", root.Tag)
		}

		chain[absPath] = true
		if err := inlineIncludes(root, filepath.Dir(absPath), subs, chain); err != nil {
			delete(chain, absPath)
			return err
		}
		delete(chain, absPath)

		parent := el
		index := indexOfChild(parent, child)
		parent.RemoveChild(child)
		for _, grand := range root.ChildElements() {
			if grand.Tag == "dict" {
				subs.addDocumentDict(grand)
				continue
			}
			cloned := grand.Copy()
			insertChildAt(parent, index, cloned)
			index++
		}
	}
	return nil
}

// indexOfChild returns child's element-index within parent (counting
// only *etree.Element tokens), the index insertChildAt expects.
func indexOfChild(parent, child *etree.Element) int {
	elems := parent.ChildElements()
	for i, c := range elems {
		if c == child {
			return i
		}
	}
	return len(elems)
}

// insertChildAt inserts child into parent's token list at logical
// element-index idx (counting only *etree.Element tokens up to idx),
// preserving the spliced-in content's relative order.
func insertChildAt(parent *etree.Element, idx int, child *etree.Element) {
	elems := parent.ChildElements()
	if idx >= len(elems) {
		parent.AddChild(child)
		return
	}
	anchor := elems[idx]
	for i, tok := range parent.Child {
		if tok == etree.Token(anchor) {
			parent.InsertChildAt(i, child)
			return
		}
	}
	parent.AddChild(child)
}
