/*
Package trackflow runs a tracking pipeline behind a command and event
boundary.

# Overview

A Worker owns an action graph (see package action) and the typed store it
reads and writes (see package dataset). Clients never touch either
directly. They push commands, which the worker executes in order, and they
receive results as events, which are queued until the client pumps them.

# Asynchronous workers

New creates a worker that runs on its own goroutine once started:

	w, err := trackflow.New()
	if err != nil {
	    log.Fatal(err)
	}
	defer w.Close()

	w.OnCommand(event.Global(), func(r command.Result) {
	    fmt.Println(r.Command.Name(), r.OK())
	})
	w.OnExtrinsic(event.NodeData("tracker0", "extrinsic"), func(v dataset.ExtrinsicView) {
	    fmt.Println("pose valid:", v.Valid())
	})

	if err := w.Start(ctx); err != nil {
	    log.Fatal(err)
	}
	w.Push("createTracker", "project-dir:tracker.vl")
	w.Push("runTracking", nil)

	for {
	    if _, err := w.WaitEvents(time.Second); err != nil {
	        log.Print(err)
	    }
	}

While running, the worker executes one graph pass per tick, paced by a
token bucket at the target frame rate. Pausing stops the passes but not
command processing.

# Synchronous workers

NewSync creates a worker without a goroutine. RunOnceSync executes the
commands queued at call time and then exactly one graph pass, on the
calling goroutine. Goroutines other than the owner must obtain a Thread
with RegisterThread before calling synchronous entry points.

# Events

Listeners are registered per channel and scope and identified by the
returned token. Events are delivered only by PollEvents and WaitEvents, on
the calling goroutine; the worker never calls listener code itself.
ClearListeners takes effect immediately: events already queued are
delivered to the listeners registered when they are pumped.
*/
package trackflow
