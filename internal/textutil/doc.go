// Package textutil provides filename helpers for participant and video names.
//
// Names arrive from headset clients in arbitrary Unicode. FoldASCII strips
// combining marks so accented names survive on any filesystem, and the
// sanitizers remove characters that are unsafe in paths.
package textutil
