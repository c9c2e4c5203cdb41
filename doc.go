// Package junction routes request paths to controllers and runs them.
//
// Routes are compact templates compiled into anchored regular expressions.
// The dispatcher tries every route of the table, lowest priority first, and
// the last match decides the controller, method and arguments of the request.
// A path no route matches is decoded by convention as
// /controller/method/args..., and the root path goes to the default
// controller's index method.
//
// Controllers, models, workers and assemblies ("units", see package unit) are
// registered by name and loaded per request. Their methods receive the
// dispatched arguments positionally, converted to the parameter types, and any
// provided values by type.
//
// # Example
//
// Here's a simple complete program using junction:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "net/http"
//
//	    "github.com/augustoroman/junction"
//	    "github.com/augustoroman/junction/config"
//	    "github.com/augustoroman/junction/unit"
//	)
//
//	type User struct{}
//
//	func (User) Show(w http.ResponseWriter, id int) {
//	    fmt.Fprintf(w, "user %d", id)
//	}
//
//	func main() {
//	    app := junction.New(config.Default())
//	    app.Units().Controller("user", unit.Of[User]())
//	    app.Route("/user/view/<#id>", "user/show", 1)
//	    if err := http.ListenAndServe(":8080", app); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Route templates
//
// A template is literal text with capture tokens:
//
//	<:name|regex>  custom capture
//	<:name>        letters, digits, "-" and "_"
//	<#name>        digits
//	<*name>        anything, including "/"
//	<!name>        anything but "/"
//
// A malformed token is matched as literal text by Route; RouteStrict and
// CompileStrict reject it instead.
//
// # Hooks
//
// Hooks are configured by name, usually in a routes file (see package config),
// and point at a method of a type registered in App.Targets. "pre_<kind>" and
// "post_<kind>" run around every unit method invocation, "404" runs when no
// controller exists for a request and "error" when a request fails.
package junction
