// Package header reads the interface declarations of a C++ SDK header into
// a small intermediate representation.
//
// Only the subset of C++ used by COM-style interface headers is understood:
// namespaces, struct, class and union definitions with base lists, data
// members, virtual methods, typedef and using aliases, enums, fixed-size
// arrays and anonymous nested records. Identities come from
// __declspec(uuid("...")), MIDL_INTERFACE("...") or DEFINE_GUID(IID_Name, ...).
//
// Everything else (templates, inline function bodies, non-virtual methods,
// static members, preprocessor directives) is skipped. The preprocessor is
// not run: macros that expand to nothing, such as calling conventions, must
// be listed in Options.Ignore unless they are in the built-in list.
//
// Usage:
//
//	ns, err := header.ParseFile("pluginterfaces/base/funknown.h", header.Options{
//		Ignore: []string{"SMTG_OVERRIDE"},
//	})
//	if err != nil {
//		return err
//	}
//	ns.Walk(func(path []string, n *header.Namespace) {
//		for _, r := range n.Records {
//			fmt.Println(strings.Join(append(path, r.Name), "::"))
//		}
//	})
package header
