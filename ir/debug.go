package ir

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// debugNode is a flattened, yaml-taggable projection of one IR node,
// mirroring the teacher's linage.Identity/DataPoint yaml-tagged debug
// shapes: a node's own kind/position plus its direct children, rather
// than a literal re-encoding of the Go struct (whose Node-typed fields
// and back-pointers don't marshal usefully as-is).
type debugNode struct {
	Kind     string      `yaml:"kind"`
	Type     string      `yaml:"type,omitempty"`
	Path     string      `yaml:"path,omitempty"`
	Line     int         `yaml:"line,omitempty"`
	Name     string      `yaml:"name,omitempty"`
	Value    string      `yaml:"value,omitempty"`
	Children []debugNode `yaml:"children,omitempty"`
}

// DumpYAML renders m's whole function/global tree as YAML, used by tests
// asserting on pipeline intermediate state without needing to reach into
// unexported pass internals.
func (m *Module) DumpYAML() (string, error) {
	root := debugNode{Kind: "Module", Name: m.NamespaceID, Path: m.Path}
	for _, fn := range m.Functions {
		root.Children = append(root.Children, dumpFunction(fn))
	}
	for _, g := range m.GlobalVariables {
		root.Children = append(root.Children, dumpNode(g))
	}
	out, err := yaml.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func dumpFunction(fn *Function) debugNode {
	d := debugNode{Kind: "Function", Name: fn.Name.String(), Type: fn.RetType.String(), Line: fn.Debug().Line, Path: fn.Debug().Path}
	for _, arg := range fn.Args {
		d.Children = append(d.Children, debugNode{Kind: "Arg", Name: arg.Name.String(), Type: arg.Type().String()})
	}
	if fn.Body != nil {
		d.Children = append(d.Children, dumpNode(fn.Body))
	}
	return d
}

// dumpNode renders any statement or expression node generically: a
// handful of node kinds carry a value or name worth surfacing directly,
// everything else just recurses into its children via WalkChildren.
func dumpNode(n Node) debugNode {
	d := debugNode{Kind: kindName(n), Type: n.Type().String(), Line: n.Debug().Line}
	switch t := n.(type) {
	case *Variable:
		d.Name = t.Name.String()
	case *Location:
		d.Name = t.Variable.Name.String()
	case *IntegerLit:
		d.Value = strconv.FormatInt(t.Value, 10)
	case *StringLit:
		for _, item := range t.Value.Items {
			d.Value += item.Literal
			if item.Variable != nil {
				d.Value += "$" + item.Variable.Name.String()
			}
		}
	case *BooleanLit:
		if t.Value {
			d.Value = "true"
		} else {
			d.Value = "false"
		}
	}
	WalkChildren(n, func(c Node) {
		d.Children = append(d.Children, dumpNode(c))
	})
	return d
}

func kindName(n Node) string {
	switch n.(type) {
	case *Block:
		return "Block"
	case *Assignment:
		return "Assignment"
	case *Location:
		return "Location"
	case *Variable:
		return "Variable"
	case *IfStatement:
		return "IfStatement"
	case *ForLoop:
		return "ForLoop"
	case *ReturnStatement:
		return "ReturnStatement"
	case *LoopControlStatement:
		return "LoopControlStatement"
	case *FunctionCall:
		return "FunctionCall"
	case *ExternCall:
		return "ExternCall"
	case *IORedirection:
		return "IORedirection"
	case *BinOp:
		return "BinOp"
	case *UnaryOp:
		return "UnaryOp"
	case *IntegerLit:
		return "IntegerLit"
	case *FractionalLit:
		return "FractionalLit"
	case *StringLit:
		return "StringLit"
	case *BooleanLit:
		return "BooleanLit"
	case *ImportStatement:
		return "ImportStatement"
	default:
		return "Node"
	}
}
