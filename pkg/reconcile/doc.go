// Package reconcile computes the minimal set of graph operations needed to
// bring the remote Mew graph in line with a set of external contact records.
//
// Three collaborators live here:
//
//   - [Resolver] materializes the existing graph state for a folder's
//     children through bounded breadth-first layer fetches, flattening the
//     label-node indirection into a plain label → slot mapping so that no
//     other component has to know how properties are encoded.
//   - The property codec ([PropertyOperations], [UpdateOperation]) turns a
//     single labeled property into the primitive operations that create or
//     update it.
//   - [Engine] diffs records against resolved state and submits the
//     resulting plan in bounded chunks.
package reconcile
