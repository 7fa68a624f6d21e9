// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

// DefaultIndexPath is the conventional project-relative location of the
// element index file.
const DefaultIndexPath = ".seismic/element_index.json"

// ElementKind classifies an element by the shape of code it represents.
//
// The set below covers the kinds emitted by the upstream scanners;
// unknown kinds are preserved verbatim rather than rejected, since the
// index format is owned by an external tool.
type ElementKind string

const (
	KindClass     ElementKind = "class"
	KindMethod    ElementKind = "method"
	KindFunction  ElementKind = "function"
	KindComponent ElementKind = "component"
	KindHook      ElementKind = "hook"
	KindInterface ElementKind = "interface"
	KindType      ElementKind = "type"
	KindDecorator ElementKind = "decorator"
	KindConstant  ElementKind = "constant"
)

// Element is one named code unit from the external index.
//
// # Description
//
// An Element records where a code unit lives and its relationship edges:
// Calls and Dependencies point at what the element uses; CalledBy points
// at what uses it. The impact analyzer walks CalledBy for downstream
// traversal and Dependencies for upstream traversal.
//
// # Fields
//
//   - Name: Unique element name within the index.
//   - Kind: Element kind ("function", "class", ...); JSON key is "type".
//   - File: Project-relative source file path.
//   - Line: 1-based line of the element's definition.
//   - Parameters: Declared parameter names, in order.
//   - Calls: Names of elements this element invokes.
//   - Dependencies: Names of elements this element depends on.
//   - CalledBy: Names of elements that depend on this element.
//
// # Thread Safety
//
// Elements are read-only after load and safe to share across goroutines.
type Element struct {
	Name         string      `json:"name"`
	Kind         ElementKind `json:"type"`
	File         string      `json:"file"`
	Line         int         `json:"line"`
	Parameters   []string    `json:"parameters,omitempty"`
	Calls        []string    `json:"calls,omitempty"`
	Dependencies []string    `json:"dependencies,omitempty"`
	CalledBy     []string    `json:"calledBy,omitempty"`
}
