// Package validate checks a whole document against the structural invariants the
// engine maintains, for documents that did not come out of the engine: files edited by
// hand, imports, stores written by other tools.
//
// Document reports every problem it finds, not only the first:
//
//	if err := validate.Document(reg, doc); err != nil {
//	    for _, issue := range validate.Issues(err) {
//	        fmt.Println(issue)
//	    }
//	}
//
// Each issue wraps a sentinel from pkg/domain, so errors.Is works on the aggregate.
package validate
