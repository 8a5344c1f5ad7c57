/*
 * Copyright 2023 Okapi Project Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hir

import (
    `fmt`
    `os`
    `path/filepath`
    `strings`
)

// DumpDot renders the CFG as a Graphviz digraph, one record node per block
// with its phis and instructions, true edges of conditionals labelled. The
// output is meant for eyeballing pass results, not for machines.
func (self *Graph) DumpDot(title string) string {
    s := new(strings.Builder)
    fmt.Fprintf(s, "digraph %q {\n", title)
    fmt.Fprintf(s, "    graph [fontname=monospace]\n")
    fmt.Fprintf(s, "    node [fontname=monospace, shape=record]\n")
    for _, b := range self.Blocks {
        if b == nil {
            continue
        }
        var rows []string
        head := fmt.Sprintf("bb_%d", b.Id)
        if b.IsLoopHeader() {
            head += " (loop header)"
        }
        rows = append(rows, head)
        for _, p := range b.Phi {
            rows = append(rows, dotEscape(p.String()))
        }
        for _, v := range b.Ins {
            rows = append(rows, dotEscape(v.String()))
        }
        fmt.Fprintf(s, "    bb_%d [label=\"{%s}\"]\n", b.Id, strings.Join(rows, "|"))
    }
    for _, b := range self.Blocks {
        if b == nil {
            continue
        }
        isIf := len(b.Succ) == 2 && b.EndsWithControlFlow() && b.LastInstruction().Op() == OpIf
        for i, v := range b.Succ {
            if isIf {
                fmt.Fprintf(s, "    bb_%d -> bb_%d [label=\"%s\"]\n", b.Id, v.Id, map[int]string{0: "true", 1: "false"}[i])
            } else {
                fmt.Fprintf(s, "    bb_%d -> bb_%d\n", b.Id, v.Id)
            }
        }
    }
    fmt.Fprintf(s, "}\n")
    return s.String()
}

// WriteDotFile drops the rendering of the graph under dir, named after the
// pass that just ran.
func (self *Graph) WriteDotFile(dir string, name string) error {
    fn := filepath.Join(dir, strings.ReplaceAll(name, " ", "_") + ".dot")
    return os.WriteFile(fn, []byte(self.DumpDot(name)), 0644)
}

func dotEscape(v string) string {
    r := strings.NewReplacer(
        `"`, `\"`,
        `{`, `\{`,
        `}`, `\}`,
        `|`, `\|`,
        `<`, `\<`,
        `>`, `\>`,
        ` `, `\ `,
    )
    return r.Replace(v)
}
