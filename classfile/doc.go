// Package classfile is an in-memory model of JVM class files.
//
// It holds what the optimizer passes need and nothing more: classes with
// their constant pool, fields, methods, attributes and instructions, plus
// tools to compose and splice instruction sequences.
//
// Classes are loaded from and saved to YAML documents in which method
// bodies are written in a small textual assembler:
//
//	new com/google/gson/GsonBuilder
//	dup
//	invokespecial com/google/gson/GsonBuilder.<init>()V
//	ldc class com/example/Person
//
// Parsing raw .class bytes is not supported.
//
// # Node kinds
//
// Every model element is a [Node] carrying a [Kind]. Traversal with [Walk]
// dispatches on the kind and only calls the visitor capabilities
// ([ClassVisitor], [FieldVisitor], [MethodVisitor], [AttributeVisitor],
// [InstructionVisitor]) that the visitor implements.
package classfile
