/*
Package compiler expands a schema into fully resolved collection definitions.

Compilation runs in two passes:

  - Expansion: every field of every collection is compiled with field.Transform,
    in declaration order, without looking at other collections.
  - Join resolution: every reverse relation ("<-coll.field") is matched to its
    counterpart field in the target collection. The counterpart gains a virtual
    sub-field describing the join and has rich nested editing enabled. Reverse
    relations are then removed from their declaring collection, resolved or not.

Join resolution is split into a read-only planning scan that produces a list of
Resolution actions and an apply step that builds new collection values, so no
field list is modified while another one is being iterated. Compile never fails:
joins that cannot be matched are reported in Result.Unresolved and dropped.
*/
package compiler
