// Package asm implements the textual surface syntax (spec.md §6): a
// minimal, line-oriented assembly language that resolves to a sequence
// of core instructions. It is deliberately kept separate from the core
// (spec.md §1's "external collaborators"), exposing only a Parse entry
// point that hands its output to program.Load.
package asm

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"tracevm/internal/inst"
)

var commentRe = regexp.MustCompile(`;.*$`)

// keywords requiring no operand.
var noArgKeywords = map[string]func() inst.Instruction{
	"halt": inst.Halt_,
	"ret":  inst.Ret_,
	"eq":   inst.Eq_,
	"ge":   inst.Ge_,
	"add":  inst.Add_,
}

// keywords taking a label operand.
var labelKeywords = map[string]func(string) inst.Instruction{
	"jump": inst.JumpLabel,
	"jz":   inst.JzLabel,
}

// keywords taking a numeric k operand.
var kKeywords = map[string]func(uint64) inst.Instruction{
	"dup":  inst.DupK,
	"swap": inst.SwapK,
	"drop": inst.DropK,
}

// Parse tokenizes and parses src into a sequence of pre-resolution
// instructions, ready for program.Load. It implements exactly the token
// grammar of spec.md §6: whitespace-separated tokens, ';' line comments,
// the keyword set, signed integer literals, and bare identifiers (which
// become label definitions when suffixed with ':').
func Parse(src string) ([]inst.Instruction, error) {
	var out []inst.Instruction

	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := commentRe.ReplaceAllString(scanner.Text(), "")
		fields := strings.Fields(line)

		for i := 0; i < len(fields); i++ {
			tok := fields[i]

			switch {
			case strings.HasSuffix(tok, ":"):
				out = append(out, inst.LabelDef(tok))
				continue

			case noArgKeywords[tok] != nil:
				out = append(out, noArgKeywords[tok]())
				continue

			case labelKeywords[tok] != nil:
				build := labelKeywords[tok]
				i++
				if i >= len(fields) {
					return nil, fmt.Errorf("asm:%d: %q requires a label operand", lineNo, tok)
				}
				out = append(out, build(fields[i]))
				continue

			case kKeywords[tok] != nil:
				build := kKeywords[tok]
				i++
				if i >= len(fields) {
					return nil, fmt.Errorf("asm:%d: %q requires an integer operand", lineNo, tok)
				}
				k, err := strconv.ParseUint(fields[i], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("asm:%d: %q: %w", lineNo, tok, err)
				}
				out = append(out, build(k))
				continue

			case tok == "push":
				i++
				if i >= len(fields) {
					return nil, fmt.Errorf("asm:%d: push requires an operand", lineNo)
				}
				operand := fields[i]
				if isIntToken(operand) {
					v, err := strconv.ParseInt(operand, 10, 64)
					if err != nil {
						return nil, fmt.Errorf("asm:%d: push %s: %w", lineNo, operand, err)
					}
					out = append(out, inst.PushIntV(v))
				} else {
					out = append(out, inst.PushLabelName(operand))
				}
				continue

			default:
				return nil, fmt.Errorf("asm:%d: unknown mnemonic %q", lineNo, tok)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("asm: %w", err)
	}

	return out, nil
}

// isIntToken is the explicit predicate spec.md §9 asks for in place of
// integer-parse-via-exception: the first character is '-' or a digit, and
// every subsequent character is a digit.
func isIntToken(tok string) bool {
	if tok == "" {
		return false
	}
	i := 0
	if tok[0] == '-' {
		if len(tok) == 1 {
			return false
		}
		i = 1
	}
	for ; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return false
		}
	}
	return true
}
