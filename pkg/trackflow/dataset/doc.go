/*
Package dataset implements the typed, hierarchical store exchanged between
actions of a tracking graph.

The store is a tree of named nodes kept in an arena and addressed by integer
NodeIDs. A node is either a DataSet (composite, holds children) or a cell
holding one typed payload:

  - Image: width, height, pixel format and raw pixel buffer
  - ExtrinsicData: world->camera rotation and translation plus validity
  - IntrinsicData: normalized pinhole calibration and distortion
  - DataBase: generic string attributes

Dotted key paths ("tracker0.extrinsic") resolve lexically, one level per key.

# Ownership

Cells are owned by the store. Code running inside the worker receives
pointers to the live cells. Client code only ever sees read-only views
(ImageView, ExtrinsicView, IntrinsicView) over snapshot clones taken between
ticks; views have no release method and cannot mutate the store.

# Thread Safety

Store is NOT safe for concurrent use. The worker owns the live store and
publishes deep clones for readers.
*/
package dataset
