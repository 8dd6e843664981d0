/*
go-screendetect runs an object detection model over the live contents of
another application's window.

The target is found by process name, its window's client area is captured
each frame, passed through an ONNX detector via OpenCV's DNN module, and the
detections are drawn over the frame together with a crosshair, a stats panel
and a class legend before being shown in a preview window.

The loop is driven by Controller which moves between the Searching,
Connected, Running, Reconnecting and Terminated states.  A window that is
resized has its capture region recomputed in place, a target that stops
responding to captures is searched for again, and a target process that exits
ends the session.

Offline inference over images and video, detector benchmarking with a SQLite
history, and an optional Prometheus endpoint are provided by the subpackages
and the screendetect command.
*/
package screendetect
