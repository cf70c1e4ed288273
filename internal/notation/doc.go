// Package notation implements the postfix text form of QTF expressions.
//
// Every endpoint is one placeholder token, operators follow their operands:
//
//	ab+     a OR b          "a ? !0 : b"
//	ab>     a AND NOT b     "a ? !b : 0"
//	ab^     a XOR b         "a ? !b : b"
//	ab&     a AND b         "a ? b : 0"
//	abc!    a ? !b : c
//	abc?    a ? b : c
//
// A digit token is a back-reference to the n-th most recent operator
// result, "0" is constant false and a trailing "~" inverts the value on top
// of the stack. "pattern/transform" renames placeholders: the pattern uses
// placeholders in first-seen order and the transform lists the endpoint
// each one stands for.
//
// Source text is parsed once into a Program, a flat instruction stream,
// which consumers execute without re-classifying characters.
package notation
