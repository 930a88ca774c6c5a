package main

// General API documentation for swaggo; handler annotations live in
// internal/httpapi. The served document is internal/httpapi/swagger.json.
//
// @title           fitd API
// @version         1.0
// @description     Train, load, serve and delete supervised-learning models over HTTP.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
