// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"

	"github.com/z5labs/pageboy/message"
)

func home(_ context.Context, _ *message.Request) (*message.Response, error) {
	return message.Bytes(message.StatusOK, "text/html; charset=utf-8", []byte("<h1>pageboy</h1>")), nil
}

// echo responds with the request body, keeping its content type.
func echo(_ context.Context, req *message.Request) (*message.Response, error) {
	ct := req.Header.Get("Content-Type")
	if ct == "" {
		ct = message.DefaultContentType
	}
	return message.Bytes(message.StatusOK, ct, req.Body), nil
}

func hello(_ context.Context, req *message.Request) (*message.Response, error) {
	name := req.Param("name")
	if greeting := req.Query.Get("greeting"); greeting != "" {
		return message.Text(message.StatusOK, greeting+", "+name), nil
	}
	return message.Text(message.StatusOK, "hello, "+name), nil
}
