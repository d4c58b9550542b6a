// Package stages holds the built-in input-guard stages (§4.5). Each stage
// implements guard.Stage and is wired into a guard.Pipeline by the
// orchestrator at startup.
package stages

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/agentcore/guardcore/pkg/config"
	"github.com/agentcore/guardcore/pkg/guard"
)

// UnicodeNormalizationOrder is the fixed pipeline position for this stage
// (§4.5 step 0 — it runs before anything else sees the text).
const UnicodeNormalizationOrder = 0

// homoglyphs maps commonly-spoofed Cyrillic/Greek look-alikes to their
// Latin equivalents, mirroring the confusable set an attacker would use
// to smuggle an otherwise-blocked keyword past later stages.
var homoglyphs = map[rune]rune{
	'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'х': 'x', 'у': 'y',
	'А': 'A', 'Е': 'E', 'О': 'O', 'Р': 'P', 'С': 'C', 'Х': 'X', 'У': 'Y',
	'ο': 'o', 'α': 'a', 'ρ': 'p',
}

// isZeroWidthOrInvisible reports whether r is one of the invisible or
// formatting code points an attacker can use to break up a blocked
// phrase without changing how the text visually renders.
func isZeroWidthOrInvisible(r rune) bool {
	switch {
	case r == '​', r == '‌', r == '‍', r == '﻿', r == '­', r == '᠎':
		return true // zero-width space/joiners, BOM, soft hyphen, Mongolian vowel separator
	case r >= '‎' && r <= '‏': // left/right-to-left marks
		return true
	case r >= '⁠' && r <= '⁤': // word joiner, invisible math operators
		return true
	case r >= '\U000e0000' && r <= '\U000e007f': // Unicode tag block
		return true
	}
	return false
}

// UnicodeNormalization strips invisible/zero-width characters, applies
// NFKC normalization, and folds known homoglyphs to their Latin
// equivalent before any other stage inspects the text. It rejects
// inputs whose proportion of stripped characters exceeds a configured
// threshold, since that is itself a strong obfuscation signal.
type UnicodeNormalization struct {
	maxZeroWidthRatio float64
}

// NewUnicodeNormalization builds the stage from guard configuration.
func NewUnicodeNormalization(cfg config.GuardConfig) *UnicodeNormalization {
	ratio := cfg.UnicodeMaxZeroWidth
	if ratio <= 0 {
		ratio = 0.10
	}
	return &UnicodeNormalization{maxZeroWidthRatio: ratio}
}

func (s *UnicodeNormalization) Name() string  { return "unicode-normalization" }
func (s *UnicodeNormalization) Order() int    { return UnicodeNormalizationOrder }
func (s *UnicodeNormalization) Enabled() bool { return true }

func (s *UnicodeNormalization) Check(_ context.Context, cmd guard.Command) guard.Result {
	totalRunes := utf8.RuneCountInString(cmd.Text)
	if totalRunes == 0 {
		return guard.Allowed()
	}

	var stripped int
	var b strings.Builder
	b.Grow(len(cmd.Text))
	for _, r := range cmd.Text {
		if isZeroWidthOrInvisible(r) {
			stripped++
			continue
		}
		if replacement, ok := homoglyphs[r]; ok {
			r = replacement
		}
		b.WriteRune(r)
	}

	if float64(stripped)/float64(totalRunes) > s.maxZeroWidthRatio {
		return guard.Rejected(
			fmt.Sprintf("input contains %d invisible characters out of %d runes, exceeding the %.0f%% obfuscation threshold", stripped, totalRunes, s.maxZeroWidthRatio*100),
			guard.CategoryInvalidInput,
		)
	}

	cleaned := norm.NFKC.String(b.String())
	return guard.Allowed("normalized:" + cleaned)
}
